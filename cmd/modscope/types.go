package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIDecl is a JSON-friendly declaration hit.
type CLIDecl struct {
	Module   string      `json:"module"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Location string      `json:"location,omitempty"`
	Local    bool        `json:"local,omitempty"`
	Via      []CLIImport `json:"via,omitempty"`
}

// CLIImport is a JSON-friendly contributing import.
type CLIImport struct {
	Module    string `json:"module"`
	Qualified bool   `json:"qualified,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

// CLILoadSummary reports a manifest ingest.
type CLILoadSummary struct {
	Manifest string `json:"manifest"`
	Modules  int    `json:"modules"`
}

// CLIResolveSummary reports a resolution run.
type CLIResolveSummary struct {
	Modules     int            `json:"modules"`
	Cycles      []CLICycle     `json:"cycles,omitempty"`
	Ambiguities []CLIAmbiguity `json:"ambiguities,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

// CLICycle is a JSON-friendly cyclic-import record.
type CLICycle struct {
	Module string `json:"module"`
	Via    string `json:"via,omitempty"`
}

// CLIAmbiguity is a JSON-friendly ambiguous-import record.
type CLIAmbiguity struct {
	Module     string `json:"module"`
	Import     string `json:"import"`
	Candidates int    `json:"candidates"`
}
