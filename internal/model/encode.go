package model

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Encode re-serializes the store to the MODEL/FEATURE text format parsed by
// Load, byte-for-byte equivalent in meaning (field order may differ).
func Encode(w io.Writer, s *Store) error {
	for _, m := range s.Models() {
		if err := encodeModel(w, m); err != nil {
			return err
		}
	}
	return nil
}

func encodeModel(w io.Writer, m *Model) error {
	if _, err := fmt.Fprintf(w, "MODEL %s\n", m.Name); err != nil {
		return err
	}
	if err := writeKV(w, "length", strconv.Itoa(m.Length)); err != nil {
		return err
	}
	if m.Group != "" {
		if err := writeKV(w, "group", m.Group); err != nil {
			return err
		}
	}
	if m.Subgroup != "" {
		if err := writeKV(w, "subgroup", m.Subgroup); err != nil {
			return err
		}
	}
	if m.ProteinDB != "" {
		if err := writeKV(w, "blastdb", m.ProteinDB); err != nil {
			return err
		}
	}
	for _, f := range m.Features {
		if err := encodeFeature(w, f); err != nil {
			return err
		}
	}
	return nil
}

func encodeFeature(w io.Writer, f Feature) error {
	if _, err := fmt.Fprintln(w, "FEATURE"); err != nil {
		return err
	}
	if err := writeKV(w, "type", string(f.Type)); err != nil {
		return err
	}
	if err := writeKV(w, "coords", EncodeCoords(f.Segments)); err != nil {
		return err
	}
	if f.Product != "" {
		if err := writeKV(w, "product", f.Product); err != nil {
			return err
		}
	}
	if f.Gene != "" {
		if err := writeKV(w, "gene", f.Gene); err != nil {
			return err
		}
	}
	if len(f.AltStartCodons) > 0 {
		if err := writeKV(w, "alt_start", strings.Join(f.AltStartCodons, ",")); err != nil {
			return err
		}
	}
	if f.ParentIndex >= 0 {
		if err := writeKV(w, "parent_idx_str", strconv.Itoa(f.ParentIndex)); err != nil {
			return err
		}
	}
	if f.SourceIndex >= 0 {
		if err := writeKV(w, "is_duplicate", "true"); err != nil {
			return err
		}
		if err := writeKV(w, "source_idx", strconv.Itoa(f.SourceIndex)); err != nil {
			return err
		}
	}
	return nil
}

func writeKV(w io.Writer, key, val string) error {
	_, err := fmt.Fprintf(w, "%s=%s\n", key, val)
	return err
}
