// Package qrcode renders otpauth URIs as scannable QR codes.
package qrcode

import (
	"encoding/base64"
	"errors"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

const (
	minSize    = 64
	maxSize    = 1024
	maxContent = 2048
)

var (
	ErrEmptyContent   = errors.New("qrcode: content is empty")
	ErrContentTooLong = errors.New("qrcode: content is too long")
)

func check(content string) error {
	switch {
	case content == "":
		return ErrEmptyContent
	case len(content) > maxContent:
		return ErrContentTooLong
	}
	return nil
}

// PNG encodes content with medium error correction. size is clamped to
// [64,1024]; zero selects DefaultSize.
func PNG(content string, size int) ([]byte, error) {
	if err := check(content); err != nil {
		return nil, err
	}

	if size == 0 {
		size = DefaultSize
	}
	size = min(max(size, minSize), maxSize)

	return goqrcode.Encode(content, goqrcode.Medium, size)
}

// DataURI returns the PNG as a data:image/png;base64 URI.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Text renders content with block characters for a terminal.
func Text(content string) (string, error) {
	if err := check(content); err != nil {
		return "", err
	}

	q, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return "", err
	}

	return q.ToString(false), nil
}
