// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package miniscope

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/miniscope/pkg/daq"
)

// FrameMeta is everything about a frame except its pixels.
type FrameMeta struct {
	// Number is the hardware frame counter, or a host sequence number on
	// variants without one.
	Number     int             `json:"frame" cbor:"frame"`
	Trigger    bool            `json:"trigger" cbor:"trigger"`
	Quaternion *daq.Quaternion `json:"quaternion,omitempty" cbor:"quaternion,omitempty"`
	Timestamp  time.Time       `json:"timestamp" cbor:"timestamp"`
	Width      int             `json:"width" cbor:"width"`
	Height     int             `json:"height" cbor:"height"`
}

// Frame is one acquired image and its metadata. The image is owned by the
// frame; subscribers of a shared source receive the same Frame and must
// treat the image as read-only.
type Frame struct {
	FrameMeta
	Image image.Image
}

// JSON encodes the frame metadata.
func (m FrameMeta) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Timestamps are written as RFC 3339 strings to keep sub-second precision.
var metaEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MetaWriter writes frame metadata as a CBOR sequence.
type MetaWriter struct {
	enc *cbor.Encoder
}

// NewMetaWriter returns a writer appending CBOR items to w.
func NewMetaWriter(w io.Writer) *MetaWriter {
	return &MetaWriter{enc: metaEncMode.NewEncoder(w)}
}

// Write appends one metadata item.
func (w *MetaWriter) Write(m FrameMeta) error {
	if err := w.enc.Encode(m); err != nil {
		return fmt.Errorf("encode frame %d metadata: %w", m.Number, err)
	}
	return nil
}

// ReadMeta decodes a CBOR sequence written by MetaWriter.
func ReadMeta(r io.Reader) ([]FrameMeta, error) {
	dec := cbor.NewDecoder(r)
	var out []FrameMeta
	for {
		var m FrameMeta
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode frame metadata: %w", err)
		}
		out = append(out, m)
	}
}
