package decomp

// Renamer maps a feature identifier to a display name, e.g. an
// ENSEMBL ID to a gene symbol.
type Renamer interface {
	Rename(feature string) string
}

// RenameFunc adapts a function to the Renamer interface.
type RenameFunc func(string) string

// Rename implements Renamer.
func (f RenameFunc) Rename(feature string) string { return f(feature) }

// MapRenamer renames from a lookup table, falling back to the
// original identifier for unknown features.
type MapRenamer map[string]string

// Rename implements Renamer.
func (m MapRenamer) Rename(feature string) string {
	if name, ok := m[feature]; ok && name != "" {
		return name
	}
	return feature
}

type identityRenamer struct{}

func (identityRenamer) Rename(feature string) string { return feature }
