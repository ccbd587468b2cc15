// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/juju/errors"
)

// MaxFrameSize bounds the length prefix of a frame so that a corrupt stream does
// not allocate unbounded memory.
const MaxFrameSize = 1 << 28

// WriteBytes writes a frame: a little-endian uint32 length followed by data.
func WriteBytes(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return errors.Errorf("frame of %d bytes exceeds %d", len(data), MaxFrameSize)
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errors.Trace(err)
	}
	_, err := w.Write(data)
	return errors.Trace(err)
}

// ReadBytes reads a frame written by WriteBytes.
func ReadBytes(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, errors.Trace(err)
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size > MaxFrameSize {
		return nil, errors.Errorf("frame of %d bytes exceeds %d", size, MaxFrameSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}

func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteGob writes v as a gob encoded frame.
func WriteGob(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Trace(err)
	}
	return WriteBytes(w, buf.Bytes())
}

// ReadGob decodes a frame written by WriteGob into v.
func ReadGob(r io.Reader, v any) error {
	data, err := ReadBytes(r)
	if err != nil {
		return err
	}
	return errors.Trace(gob.NewDecoder(bytes.NewReader(data)).Decode(v))
}

// WriteHeader writes fields identifying the content that follows.
func WriteHeader(w io.Writer, fields ...string) error {
	for _, field := range fields {
		if err := WriteString(w, field); err != nil {
			return err
		}
	}
	return nil
}

// ReadHeader reads len(expect) fields and returns the first that does not match
// as a NotValid error.
func ReadHeader(r io.Reader, expect ...string) error {
	for _, field := range expect {
		actual, err := ReadString(r)
		if err != nil {
			return err
		}
		if actual != field {
			return errors.NotValidf("header %q, expect %q", actual, field)
		}
	}
	return nil
}
