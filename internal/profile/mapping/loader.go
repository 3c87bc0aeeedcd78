package mapping

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	dErrors "beneficiary/pkg/domain-errors"
	"beneficiary/pkg/jsonvalue"
	"beneficiary/pkg/validation"
)

//go:embed defaults
var defaultsFS embed.FS

// Files inside a configuration tree.
const (
	fileVCArray       = "vcArray.json"
	fileDocuments     = "documents.json"
	dirVCPaths        = "vcPaths"
	fileValidator     = "validator/config.json"
	fileFieldValues   = "validator/fieldValues.json"
	fileNamePositions = "validator/nameFieldsPosition.json"
	dirDocToFieldMaps = "validator/docToFieldMaps"
)

// Defaults returns the configuration tree compiled into the binary.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadDefault loads the embedded configuration.
func LoadDefault() (*Config, error) {
	return Load(Defaults())
}

// LoadDir loads a configuration tree from disk, or the embedded defaults
// when dir is empty.
func LoadDir(dir string) (*Config, error) {
	if dir == "" {
		return LoadDefault()
	}
	return Load(os.DirFS(dir))
}

// Load reads and cross-checks a configuration tree. Any missing, malformed,
// or dangling entry is reported as a CodeConfiguration error.
func Load(fsys fs.FS) (*Config, error) {
	cfg := &Config{
		paths:       make(map[string]FieldPaths),
		descriptors: make(map[string][]Descriptor),
	}

	var err error
	if cfg.priority, err = loadPriority(fsys); err != nil {
		return nil, err
	}
	for _, p := range cfg.priority {
		for _, docType := range p.DocTypes {
			if _, seen := cfg.paths[docType]; seen {
				continue
			}
			paths, err := loadPaths(fsys, docType)
			if err != nil {
				return nil, err
			}
			cfg.paths[docType] = paths
		}
	}

	if cfg.validation, err = loadValidation(fsys); err != nil {
		return nil, err
	}
	for _, a := range cfg.validation {
		for _, file := range a.Files {
			if _, seen := cfg.descriptors[file]; seen {
				continue
			}
			descs, err := loadDescriptors(fsys, file)
			if err != nil {
				return nil, err
			}
			cfg.descriptors[file] = descs
		}
	}

	if cfg.fieldValues, err = loadFieldValues(fsys); err != nil {
		return nil, err
	}
	if cfg.namePositions, err = loadNamePositions(fsys); err != nil {
		return nil, err
	}
	if cfg.catalog, err = loadCatalog(fsys); err != nil {
		return nil, err
	}
	if err := checkCatalogCoverage(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkCatalogCoverage requires every doc type named by the priority table
// and the validator config to have a catalog entry. Stores select documents
// by catalog subtype, so an unlisted type would never be read.
func checkCatalogCoverage(cfg *Config) error {
	for _, p := range cfg.priority {
		for _, docType := range p.DocTypes {
			if !cfg.IsKnownDocument(docType) {
				return configErr(fileDocuments, fmt.Errorf("doc type %q from %s is not listed", docType, fileVCArray))
			}
		}
	}
	for _, a := range cfg.validation {
		for _, file := range a.Files {
			if !cfg.IsKnownDocument(file) {
				return configErr(fileDocuments, fmt.Errorf("doc type %q from %s is not listed", file, fileValidator))
			}
		}
	}
	return nil
}

// configErr always reports CodeConfiguration, even when err carries a
// validation code of its own.
func configErr(file string, err error) error {
	return &dErrors.Error{
		Code:    dErrors.CodeConfiguration,
		Message: fmt.Sprintf("mapping %s: %v", file, err),
		Err:     err,
	}
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, configErr(name, errors.New("file not found"))
		}
		return nil, configErr(name, err)
	}
	return data, nil
}

func decodeJSON(fsys fs.FS, name string, dst any) error {
	data, err := readFile(fsys, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return configErr(name, err)
	}
	return nil
}

// readOrderedTable parses {"key": ["a", "b"], ...} keeping key order.
func readOrderedTable(fsys fs.FS, name string) ([]string, map[string][]string, error) {
	data, err := readFile(fsys, name)
	if err != nil {
		return nil, nil, err
	}
	root, err := jsonvalue.Parse(data)
	if err != nil {
		return nil, nil, configErr(name, err)
	}
	obj, ok := root.(*jsonvalue.Object)
	if !ok {
		return nil, nil, configErr(name, errors.New("top level must be an object"))
	}

	keys := obj.Keys()
	table := make(map[string][]string, len(keys))
	for _, key := range keys {
		member, _ := obj.Get(key)
		arr, ok := member.(jsonvalue.Array)
		if !ok {
			return nil, nil, configErr(name, fmt.Errorf("%s must be an array", key))
		}
		list := make([]string, 0, len(arr))
		for i, el := range arr {
			s, ok := el.(jsonvalue.String)
			if !ok {
				return nil, nil, configErr(name, fmt.Errorf("%s[%d] must be a string", key, i))
			}
			list = append(list, string(s))
		}
		table[key] = list
	}
	return keys, table, nil
}

func loadPriority(fsys fs.FS) ([]FieldPriority, error) {
	keys, table, err := readOrderedTable(fsys, fileVCArray)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, configErr(fileVCArray, errors.New("no profile fields configured"))
	}
	out := make([]FieldPriority, 0, len(keys))
	for _, field := range keys {
		p := FieldPriority{Field: field, DocTypes: table[field]}
		if err := validation.Validate(p); err != nil {
			return nil, configErr(fileVCArray, fmt.Errorf("%s: %w", field, err))
		}
		out = append(out, p)
	}
	return out, nil
}

func loadPaths(fsys fs.FS, docType string) (FieldPaths, error) {
	if strings.ContainsAny(docType, `/\`) {
		return nil, configErr(fileVCArray, fmt.Errorf("invalid doc type %q", docType))
	}
	name := path.Join(dirVCPaths, docType+".json")
	var paths FieldPaths
	if err := decodeJSON(fsys, name, &paths); err != nil {
		return nil, err
	}
	if paths == nil {
		return nil, configErr(name, errors.New("top level must be an object"))
	}
	for field, p := range paths {
		if err := validation.Validate(struct {
			Path string `validate:"dotpath"`
		}{p}); err != nil {
			return nil, configErr(name, fmt.Errorf("%s: %w", field, err))
		}
	}
	return paths, nil
}

func loadValidation(fsys fs.FS) ([]AttributeFiles, error) {
	keys, table, err := readOrderedTable(fsys, fileValidator)
	if err != nil {
		return nil, err
	}
	out := make([]AttributeFiles, 0, len(keys))
	for _, attr := range keys {
		a := AttributeFiles{Attribute: attr, Files: table[attr]}
		if err := validation.Validate(a); err != nil {
			return nil, configErr(fileValidator, fmt.Errorf("%s: %w", attr, err))
		}
		out = append(out, a)
	}
	return out, nil
}

func loadDescriptors(fsys fs.FS, file string) ([]Descriptor, error) {
	if strings.ContainsAny(file, `/\`) {
		return nil, configErr(fileValidator, fmt.Errorf("invalid file name %q", file))
	}
	name := path.Join(dirDocToFieldMaps, file+".json")
	var descs []Descriptor
	if err := decodeJSON(fsys, name, &descs); err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, configErr(name, errors.New("no descriptors"))
	}
	for i, d := range descs {
		if err := validation.Validate(d); err != nil {
			return nil, configErr(name, fmt.Errorf("descriptor %d: %w", i, err))
		}
	}
	return descs, nil
}

func loadFieldValues(fsys fs.FS) (map[string]map[string][]string, error) {
	var raw map[string]map[string][]string
	if err := decodeJSON(fsys, fileFieldValues, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]map[string][]string, len(raw))
	for attr, set := range raw {
		norm := make(map[string][]string, len(set))
		for stored, accepted := range set {
			lowered := make([]string, len(accepted))
			for i, v := range accepted {
				lowered[i] = strings.ToLower(v)
			}
			norm[strings.ToLower(stored)] = lowered
		}
		out[attr] = norm
	}
	return out, nil
}

func loadNamePositions(fsys fs.FS) (map[string]map[string]int, error) {
	var raw map[string]map[string]int
	if err := decodeJSON(fsys, fileNamePositions, &raw); err != nil {
		return nil, err
	}
	for docType, byAttr := range raw {
		for attr, pos := range byAttr {
			if pos < 0 {
				return nil, configErr(fileNamePositions, fmt.Errorf("%s.%s: negative position", docType, attr))
			}
		}
	}
	if raw == nil {
		raw = map[string]map[string]int{}
	}
	return raw, nil
}

func loadCatalog(fsys fs.FS) ([]DocumentKind, error) {
	var kinds []DocumentKind
	if err := decodeJSON(fsys, fileDocuments, &kinds); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(kinds))
	for i, k := range kinds {
		if err := validation.Validate(k); err != nil {
			return nil, configErr(fileDocuments, fmt.Errorf("entry %d: %w", i, err))
		}
		if _, dup := seen[k.Subtype]; dup {
			return nil, configErr(fileDocuments, fmt.Errorf("duplicate subtype %q", k.Subtype))
		}
		seen[k.Subtype] = struct{}{}
	}
	return kinds, nil
}
