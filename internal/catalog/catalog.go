// Package catalog is the read-only client for the platform's registry of
// datasets, problems, and optimizers, plus the adapters that turn catalog
// records into workflow nodes.
package catalog

// ParameterSpec describes one entry of a problem's or optimizer's parameter
// schema. The schema is owned by the catalog; the workflow core only uses the
// defaults to seed node parameters.
type ParameterSpec struct {
	Type        string `json:"type"`
	Default     any    `json:"default"`
	Description string `json:"description"`
}

// Dataset is a catalog dataset record.
type Dataset struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Username    string         `json:"username"`
	Description string         `json:"description"`
	FormatType  string         `json:"format_type"`
	FileSize    int64          `json:"file_size"`
	Metadata    map[string]any `json:"metadata"`
}

// Problem is a catalog problem record.
type Problem struct {
	Name        string                   `json:"name"`
	Username    string                   `json:"username"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
	Tags        []string                 `json:"tags"`
	Repository  string                   `json:"repository"`
}

// Optimizer is a catalog optimizer record; it has the same shape as Problem
// but is a distinct type so adapters cannot mix the two up.
type Optimizer struct {
	Name        string                   `json:"name"`
	Username    string                   `json:"username"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
	Tags        []string                 `json:"tags"`
	Repository  string                   `json:"repository"`
}
