package configloader

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// CurrentVersion is the schema version documents are migrated to.
const CurrentVersion = "2.0.0"

// legacyVersion is assumed for documents without a version marker.
const legacyVersion = "1.0.0"

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaVersion describes one revision of the configuration document format.
type SchemaVersion struct {
	Version  string
	Previous string
	Next     string
	// VersionKey is the top-level key holding the version marker.
	VersionKey string
	file       string
}

var schemaVersions = map[string]SchemaVersion{
	"1.0.0": {Version: "1.0.0", Next: "2.0.0", VersionKey: "_version", file: "schemas/1.0.0.json"},
	"2.0.0": {Version: "2.0.0", Previous: "1.0.0", VersionKey: "version", file: "schemas/2.0.0.json"},
}

var (
	resolvedMu      sync.Mutex
	resolvedSchemas = map[string]*jsonschema.Resolved{}
)

// Versions returns the known schema versions keyed by version string.
func Versions() map[string]SchemaVersion {
	out := make(map[string]SchemaVersion, len(schemaVersions))
	for k, v := range schemaVersions {
		out[k] = v
	}
	return out
}

func resolvedSchema(version string) (*jsonschema.Resolved, error) {
	resolvedMu.Lock()
	defer resolvedMu.Unlock()

	if rs, ok := resolvedSchemas[version]; ok {
		return rs, nil
	}

	sv, ok := schemaVersions[version]
	if !ok {
		return nil, configErr(ErrUnsupportedVersion, "version %q", version)
	}

	data, readErr := schemaFS.ReadFile(sv.file)
	if readErr != nil {
		return nil, fmt.Errorf("read schema %s: %w", sv.file, readErr)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", sv.file, err)
	}

	rs, resolveErr := schema.Resolve(nil)
	if resolveErr != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", sv.file, resolveErr)
	}

	resolvedSchemas[version] = rs
	return rs, nil
}

// validateDocument checks doc against the schema for version.
func validateDocument(version string, doc map[string]any) error {
	rs, err := resolvedSchema(version)
	if err != nil {
		return err
	}
	if validateErr := rs.Validate(doc); validateErr != nil {
		return configErr(ErrInvalidConfig, "schema %s: %w", version, validateErr)
	}
	return nil
}

// documentVersion reads the version marker, defaulting to the legacy format.
func documentVersion(doc map[string]any) (string, error) {
	for _, sv := range schemaVersions {
		raw, ok := doc[sv.VersionKey]
		if !ok {
			continue
		}
		v, isStr := raw.(string)
		if !isStr {
			return "", configErr(ErrInvalidConfig, "%s must be a string", sv.VersionKey)
		}
		if _, known := schemaVersions[v]; !known {
			return "", configErr(ErrUnsupportedVersion, "version %q", v)
		}
		return v, nil
	}
	return legacyVersion, nil
}
