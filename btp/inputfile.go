package btp

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeFields reads Fields from a YAML document. Energies are in Ha and
// lengths in bohr.
func DecodeFields(r io.Reader) (Fields, error) {
	var f Fields
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fields{}, fmt.Errorf("btp: decode input: %w", err)
	}
	return f, nil
}

// LoadInput reads a YAML input file and validates it with NewInput.
func LoadInput(path string, opts ...InputOption) (*Input, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("btp: %w", err)
	}
	defer fh.Close()

	f, err := DecodeFields(fh)
	if err != nil {
		return nil, err
	}
	return NewInput(f, opts...)
}

// EncodeFields writes f as a YAML document readable by DecodeFields.
func EncodeFields(w io.Writer, f Fields) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("btp: encode input: %w", err)
	}
	return enc.Close()
}
