// Package feature concatenates a predicted feature's segments into a
// nucleotide string and runs the coding-region decision table against it.
package feature

import "strings"

// codonTable is the teacher's standard genetic code, reused verbatim.
var codonTable = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',

	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',

	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',

	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

var complementMap = map[byte]byte{
	'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G',
	'a': 't', 't': 'a', 'g': 'c', 'c': 'g',
	'N': 'N', 'n': 'n',
}

// TranslateCodon translates a DNA codon to its amino acid. Returns 'X' for
// unknown codons and '*' for stop codons.
func TranslateCodon(codon string) byte {
	if len(codon) != 3 {
		return 'X'
	}
	codon = strings.ToUpper(codon)
	if aa, ok := codonTable[codon]; ok {
		return aa
	}
	return 'X'
}

// IsStopCodon reports whether codon is a stop codon (TAA, TAG, TGA).
func IsStopCodon(codon string) bool {
	return TranslateCodon(codon) == '*'
}

// defaultStartCodons is the canonical start codon set; a model may widen it
// per feature with an alternative-start-codon configuration (spec.md §4.7).
var defaultStartCodons = map[string]bool{"ATG": true}

// IsStartCodon reports whether codon is a valid start, given any configured
// alternatives in addition to ATG.
func IsStartCodon(codon string, alternatives ...string) bool {
	codon = strings.ToUpper(codon)
	if defaultStartCodons[codon] {
		return true
	}
	for _, alt := range alternatives {
		if strings.ToUpper(alt) == codon {
			return true
		}
	}
	return false
}

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		base := seq[n-1-i]
		if c, ok := complementMap[base]; ok {
			out[i] = c
		} else {
			out[i] = 'N'
		}
	}
	return string(out)
}

// GetCodon extracts the 1-based codonNumber'th codon from seq, or "" if out
// of range.
func GetCodon(seq string, codonNumber int) string {
	if codonNumber < 1 {
		return ""
	}
	start := (codonNumber - 1) * 3
	end := start + 3
	if end > len(seq) {
		return ""
	}
	return seq[start:end]
}
