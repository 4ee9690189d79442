package configloader

import (
	"maps"
)

type migrationKey struct {
	from, to string
}

// Converter rewrites a document from one schema version to the next. It must
// not modify its input.
type Converter func(doc map[string]any) (map[string]any, error)

var migrations = map[migrationKey]Converter{
	{from: "1.0.0", to: "2.0.0"}: migrateV1ToV2,
}

// Migrate validates doc against its declared version and converts it forward
// until it reaches CurrentVersion. The input is not modified.
func Migrate(doc map[string]any) (map[string]any, error) {
	version, err := documentVersion(doc)
	if err != nil {
		return nil, err
	}

	if validateErr := validateDocument(version, doc); validateErr != nil {
		return nil, validateErr
	}

	for version != CurrentVersion {
		next := schemaVersions[version].Next
		convert, ok := migrations[migrationKey{from: version, to: next}]
		if next == "" || !ok {
			return nil, configErr(ErrUnsupportedVersion, "no migration from %s", version)
		}

		converted, convertErr := convert(doc)
		if convertErr != nil {
			return nil, configErr(ErrInvalidConfig, "migrate %s to %s: %w", version, next, convertErr)
		}
		if validateErr := validateDocument(next, converted); validateErr != nil {
			return nil, validateErr
		}
		doc, version = converted, next
	}

	return doc, nil
}

var v1TaskTypeKeys = map[string]string{
	"group":              "difficulty",
	"type":               "handler",
	"templates":          "templates",
	"excludedtemplates":  "excludedTemplates",
	"excludedcategories": "excludedCategories",
	"learnmore":          "learnMoreLink",
	"settings":           "settings",
	"disabled":           "disabled",
}

func migrateV1ToV2(doc map[string]any) (map[string]any, error) {
	taskTypes := map[string]any{}
	topics := map[string]any{}

	for key, value := range doc {
		switch key {
		case "_version":
		case "_topics":
			legacy, _ := value.(map[string]any)
			for id, raw := range legacy {
				t, _ := raw.(map[string]any)
				topic := map[string]any{"kind": "morelike", "referencePages": t["titles"]}
				if group, ok := t["group"]; ok {
					topic["group"] = group
				}
				topics[id] = topic
			}
		default:
			legacy, _ := value.(map[string]any)
			converted := make(map[string]any, len(legacy))
			for oldKey, v := range legacy {
				if newKey, ok := v1TaskTypeKeys[oldKey]; ok {
					converted[newKey] = v
				}
			}
			if s, ok := converted["settings"].(map[string]any); ok {
				converted["settings"] = maps.Clone(s)
			}
			taskTypes[key] = converted
		}
	}

	return map[string]any{
		"version":          "2.0.0",
		"taskTypes":        taskTypes,
		"topics":           topics,
		"infoboxTemplates": []any{},
	}, nil
}
