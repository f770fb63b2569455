package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/temirov/reltrain/internal/version"
)

const (
	versionKeyConstant                   = "version"
	dependenciesKeyConstant              = "dependencies"
	yamlStringTagConstant                = "!!str"
	yamlIndentConstant                   = 2
	lineFeedByteConstant                 = '\n'
	doubleQuoteByteConstant              = '"'
	singleQuoteByteConstant              = '\''
	backslashByteConstant                = '\\'
	singleQuoteConstant                  = "'"
	escapedSingleQuoteConstant           = "''"
	temporaryFilePatternTemplateConstant = ".%s.*.tmp"
	readErrorTemplateConstant            = "failed to read descriptor %s: %w"
	parseErrorTemplateConstant           = "failed to parse descriptor %s: %w"
	encodeErrorTemplateConstant          = "failed to encode descriptor %s: %w"
	writeErrorTemplateConstant           = "failed to write descriptor %s: %w"
	versionMissingTemplateConstant       = "descriptor %s: %w"
	dependencyMissingTemplateConstant    = "descriptor %s dependency %s: %w"
	dependencyVersionTemplateConstant    = "descriptor %s dependency %s: %w"
	notMappingTemplateConstant           = "descriptor %s: %w"
)

var (
	// ErrVersionNotDeclared indicates the descriptor carries no version entry.
	ErrVersionNotDeclared = errors.New("version not declared")
	// ErrDependencyNotDeclared indicates a dependency entry is absent from the descriptor.
	ErrDependencyNotDeclared = errors.New("dependency not declared")
	// ErrNotAMapping indicates the descriptor document is not a YAML mapping.
	ErrNotAMapping = errors.New("descriptor root must be a mapping")
)

// Reader exposes read access to descriptors.
type Reader interface {
	ReadVersion(path string) (version.Version, error)
	ReadDependencyVersions(path string) (map[string]version.Version, error)
}

// Writer exposes write access to descriptors.
type Writer interface {
	WriteVersion(path string, target version.Version) error
	WriteDependencyVersion(path string, dependencyID string, target version.Version) error
}

// ReaderWriter combines descriptor read and write capabilities.
type ReaderWriter interface {
	Reader
	Writer
}

// YAMLDescriptor implements ReaderWriter for YAML descriptor files.
type YAMLDescriptor struct{}

// NewYAMLDescriptor constructs a YAML descriptor reader and writer.
func NewYAMLDescriptor() *YAMLDescriptor {
	return &YAMLDescriptor{}
}

// ReadVersion returns the version the descriptor declares for its own repository.
func (descriptor *YAMLDescriptor) ReadVersion(path string) (version.Version, error) {
	root, loadError := loadMapping(path)
	if loadError != nil {
		return version.Version{}, loadError
	}

	versionNode := lookupValue(root, versionKeyConstant)
	if versionNode == nil || len(strings.TrimSpace(versionNode.Value)) == 0 {
		return version.Version{}, fmt.Errorf(versionMissingTemplateConstant, path, ErrVersionNotDeclared)
	}

	return version.Parse(versionNode.Value)
}

// ReadDependencyVersions returns every declared dependency version keyed by dependency id.
func (descriptor *YAMLDescriptor) ReadDependencyVersions(path string) (map[string]version.Version, error) {
	root, loadError := loadMapping(path)
	if loadError != nil {
		return nil, loadError
	}

	dependencies := make(map[string]version.Version)
	dependenciesNode := lookupValue(root, dependenciesKeyConstant)
	if dependenciesNode == nil || dependenciesNode.Kind != yaml.MappingNode {
		return dependencies, nil
	}

	for index := 0; index+1 < len(dependenciesNode.Content); index += 2 {
		dependencyID := dependenciesNode.Content[index].Value
		parsedVersion, parseError := version.Parse(dependenciesNode.Content[index+1].Value)
		if parseError != nil {
			return nil, fmt.Errorf(dependencyVersionTemplateConstant, path, dependencyID, parseError)
		}
		dependencies[dependencyID] = parsedVersion
	}

	return dependencies, nil
}

// WriteVersion replaces the descriptor's own version. Only the version text changes on disk.
func (descriptor *YAMLDescriptor) WriteVersion(path string, target version.Version) error {
	return updateScalar(path, target.String(), func(root *yaml.Node) (*yaml.Node, error) {
		versionNode := lookupValue(root, versionKeyConstant)
		if versionNode == nil {
			return nil, fmt.Errorf(versionMissingTemplateConstant, path, ErrVersionNotDeclared)
		}
		return versionNode, nil
	})
}

// WriteDependencyVersion replaces the declared version of one dependency.
func (descriptor *YAMLDescriptor) WriteDependencyVersion(path string, dependencyID string, target version.Version) error {
	return updateScalar(path, target.String(), func(root *yaml.Node) (*yaml.Node, error) {
		dependenciesNode := lookupValue(root, dependenciesKeyConstant)
		if dependenciesNode == nil || dependenciesNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf(dependencyMissingTemplateConstant, path, dependencyID, ErrDependencyNotDeclared)
		}
		dependencyNode := lookupValue(dependenciesNode, dependencyID)
		if dependencyNode == nil {
			return nil, fmt.Errorf(dependencyMissingTemplateConstant, path, dependencyID, ErrDependencyNotDeclared)
		}
		return dependencyNode, nil
	})
}

// DependencyIDs returns the sorted keys of a dependency map.
func DependencyIDs(dependencies map[string]version.Version) []string {
	identifiers := make([]string, 0, len(dependencies))
	for identifier := range dependencies {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

func loadDocument(path string) (*yaml.Node, error) {
	contentBytes, readError := os.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(readErrorTemplateConstant, path, readError)
	}
	return parseDocument(path, contentBytes)
}

func parseDocument(path string, contentBytes []byte) (*yaml.Node, error) {
	var document yaml.Node
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return nil, fmt.Errorf(parseErrorTemplateConstant, path, unmarshalError)
	}
	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 || document.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf(notMappingTemplateConstant, path, ErrNotAMapping)
	}
	return &document, nil
}

func loadMapping(path string) (*yaml.Node, error) {
	document, loadError := loadDocument(path)
	if loadError != nil {
		return nil, loadError
	}
	return document.Content[0], nil
}

// updateScalar rewrites the scalar returned by locate. The source text of the scalar is
// replaced in place so layout, comments and quoting survive; documents the splice cannot
// handle are re-encoded from the node tree instead.
func updateScalar(path string, value string, locate func(root *yaml.Node) (*yaml.Node, error)) error {
	contentBytes, readError := os.ReadFile(path)
	if readError != nil {
		return fmt.Errorf(readErrorTemplateConstant, path, readError)
	}
	document, parseError := parseDocument(path, contentBytes)
	if parseError != nil {
		return parseError
	}
	node, locateError := locate(document.Content[0])
	if locateError != nil {
		return locateError
	}

	updated, spliced := spliceScalar(contentBytes, node, value)
	if !spliced || !holdsValue(path, updated, locate, value) {
		setScalar(node, value)
		var encodeError error
		if updated, encodeError = encodeDocument(document); encodeError != nil {
			return fmt.Errorf(encodeErrorTemplateConstant, path, encodeError)
		}
	}

	if writeError := writeFileAtomically(path, updated); writeError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, path, writeError)
	}
	return nil
}

// spliceScalar replaces the source text of a single-line plain or quoted scalar.
func spliceScalar(content []byte, node *yaml.Node, value string) ([]byte, bool) {
	if node.Kind != yaml.ScalarNode || node.Style&yaml.TaggedStyle != 0 || len(node.Value) == 0 || node.Line < 1 || node.Column < 1 {
		return nil, false
	}

	lineStart := 0
	for line := 1; line < node.Line; line++ {
		next := bytes.IndexByte(content[lineStart:], lineFeedByteConstant)
		if next < 0 {
			return nil, false
		}
		lineStart += next + 1
	}
	lineEnd := len(content)
	if next := bytes.IndexByte(content[lineStart:], lineFeedByteConstant); next >= 0 {
		lineEnd = lineStart + next
	}
	line := content[lineStart:lineEnd]

	columnOffset, found := byteOffsetOfColumn(line, node.Column)
	if !found {
		return nil, false
	}
	source := line[columnOffset:]

	var width int
	var replacement string
	switch node.Style {
	case 0:
		if !bytes.HasPrefix(source, []byte(node.Value)) {
			return nil, false
		}
		width = len(node.Value)
		replacement = value
	case yaml.DoubleQuotedStyle:
		width = quotedWidth(source, doubleQuoteByteConstant, false)
		replacement = strconv.Quote(value)
	case yaml.SingleQuotedStyle:
		width = quotedWidth(source, singleQuoteByteConstant, true)
		replacement = singleQuoteConstant + strings.ReplaceAll(value, singleQuoteConstant, escapedSingleQuoteConstant) + singleQuoteConstant
	default:
		return nil, false
	}
	if width == 0 {
		return nil, false
	}

	start := lineStart + columnOffset
	updated := make([]byte, 0, len(content)-width+len(replacement))
	updated = append(updated, content[:start]...)
	updated = append(updated, replacement...)
	updated = append(updated, content[start+width:]...)
	return updated, true
}

// byteOffsetOfColumn converts a one-based character column into a byte offset within line.
func byteOffsetOfColumn(line []byte, column int) (int, bool) {
	offset := 0
	for character := 1; character < column; character++ {
		if offset >= len(line) {
			return 0, false
		}
		_, size := utf8.DecodeRune(line[offset:])
		offset += size
	}
	return offset, offset < len(line)
}

// quotedWidth returns the byte length of the quoted scalar opening source, zero when it
// does not close on the same line. Single quotes escape by doubling, double quotes by backslash.
func quotedWidth(source []byte, quote byte, doubledEscape bool) int {
	if len(source) == 0 || source[0] != quote {
		return 0
	}
	for index := 1; index < len(source); index++ {
		switch {
		case !doubledEscape && source[index] == backslashByteConstant:
			index++
		case source[index] == quote && doubledEscape && index+1 < len(source) && source[index+1] == quote:
			index++
		case source[index] == quote:
			return index + 1
		}
	}
	return 0
}

func holdsValue(path string, content []byte, locate func(root *yaml.Node) (*yaml.Node, error), value string) bool {
	document, parseError := parseDocument(path, content)
	if parseError != nil {
		return false
	}
	node, locateError := locate(document.Content[0])
	return locateError == nil && node.Kind == yaml.ScalarNode && node.Value == value
}

func encodeDocument(document *yaml.Node) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, closeError
	}
	return buffer.Bytes(), nil
}

// writeFileAtomically renames a fully written sibling file over path so readers never
// observe a partial write.
func writeFileAtomically(path string, content []byte) error {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		return statError
	}

	directory := filepath.Dir(path)
	temporaryFile, createError := os.CreateTemp(directory, fmt.Sprintf(temporaryFilePatternTemplateConstant, filepath.Base(path)))
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(content); writeError != nil {
		_ = temporaryFile.Close()
		return writeError
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		return syncError
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return closeError
	}
	if chmodError := os.Chmod(temporaryPath, fileInfo.Mode().Perm()); chmodError != nil {
		return chmodError
	}
	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		return renameError
	}
	committed = true
	return nil
}

func lookupValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			return mapping.Content[index+1]
		}
	}
	return nil
}

func setScalar(node *yaml.Node, value string) {
	node.Kind = yaml.ScalarNode
	node.Tag = yamlStringTagConstant
	node.Value = value
	node.Content = nil
}
