//go:build !portaudio

package audio

import "fmt"

func openPortAudio(Source) (Output, error) {
	return nil, fmt.Errorf("%w: portaudio (rebuild with -tags portaudio)", ErrBackendUnavailable)
}
