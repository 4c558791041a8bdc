package pcm

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads a PCM WAV stream and converts it to 16-bit samples.
func DecodeWAV(r io.ReadSeeker) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("pcm: not a valid wav stream")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return Buffer{}, fmt.Errorf("pcm: unsupported wav audio format %d", dec.WavAudioFormat)
	}
	intBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("pcm: decode wav: %w", err)
	}
	if intBuf == nil || intBuf.Format == nil {
		return Buffer{}, fmt.Errorf("pcm: wav stream missing format")
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(intBuf.Data))
	for i, v := range intBuf.Data {
		samples[i] = to16(v, depth)
	}
	buf := Buffer{
		Samples:    samples,
		SampleRate: intBuf.Format.SampleRate,
		Channels:   intBuf.Format.NumChannels,
	}
	if err := buf.Validate(); err != nil {
		return Buffer{}, err
	}
	return buf, nil
}

// DecodeWAVBytes decodes an in-memory WAV payload.
func DecodeWAVBytes(data []byte) (Buffer, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// ReadWAV decodes the WAV file at path.
func ReadWAV(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("pcm: open %s: %w", path, err)
	}
	defer file.Close()
	return DecodeWAV(file)
}

// WriteWAV encodes buf as a 16-bit PCM WAV file at path.
func WriteWAV(path string, buf Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pcm: create %s: %w", path, err)
	}
	if err := EncodeWAV(file, buf); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("pcm: close %s: %w", path, err)
	}
	return nil
}

// EncodeWAV writes buf as 16-bit PCM WAV to w.
func EncodeWAV(w io.WriteSeeker, buf Buffer) error {
	enc := wav.NewEncoder(w, buf.SampleRate, 16, buf.Channels, 1)
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(s)
	}
	if err := enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: buf.SampleRate, NumChannels: buf.Channels},
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("pcm: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("pcm: finalize wav: %w", err)
	}
	return nil
}

func to16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
