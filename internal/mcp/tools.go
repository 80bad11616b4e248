package mcp

// Tool names.
const (
	ToolSearchHymns = "search_hymns"
	ToolFindHymn    = "find_hymn"
	ToolGetHymn     = "get_hymn"
	ToolIndexStatus = "index_status"
)

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        ToolSearchHymns,
		Description: "Search the hymnal for lines similar to the query. Returns the closest hymn excerpts with scores. Use find_hymn when you want a composed answer instead of raw excerpts.",
	},
	{
		Name:        ToolFindHymn,
		Description: "Identify the hymn a remembered line belongs to. Retrieves the closest excerpts and returns a short answer naming the hymn, or a no-match message.",
	},
	{
		Name:        ToolGetHymn,
		Description: "Return the full text of one hymn by language and hymn id (as reported by search_hymns).",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report which languages have a published index, with hymn and chunk counts and the embedding model used.",
	},
}

// SearchInput defines the input schema for the search_hymns tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"a line or phrase from the hymn"`
	Language string `json:"language" jsonschema:"hymnal language: english or yoruba"`
	K        int    `json:"k,omitempty" jsonschema:"number of excerpts to return, default 3"`
}

// SearchOutput defines the output schema for the search_hymns tool.
type SearchOutput struct {
	Language string               `json:"language" jsonschema:"language searched"`
	Results  []SearchResultOutput `json:"results" jsonschema:"excerpts ordered by similarity"`
}

// SearchResultOutput is one ranked excerpt.
type SearchResultOutput struct {
	HymnID  int     `json:"hymn_id" jsonschema:"hymn id within the language index"`
	ChunkID int     `json:"chunk_id" jsonschema:"chunk position within the hymn"`
	Text    string  `json:"text" jsonschema:"excerpt text"`
	Score   float64 `json:"score" jsonschema:"similarity between 0 and 1"`
}

// FindInput defines the input schema for the find_hymn tool.
type FindInput struct {
	Query    string `json:"query" jsonschema:"a line or phrase from the hymn"`
	Language string `json:"language" jsonschema:"hymnal language: english or yoruba"`
}

// FindOutput defines the output schema for the find_hymn tool.
type FindOutput struct {
	Answer  string               `json:"answer" jsonschema:"composed answer"`
	Matched bool                 `json:"matched" jsonschema:"false when nothing similar was found"`
	Sources []SearchResultOutput `json:"sources" jsonschema:"excerpts the answer was composed from"`
}

// HymnInput defines the input schema for the get_hymn tool.
type HymnInput struct {
	Language string `json:"language" jsonschema:"hymnal language: english or yoruba"`
	ID       int    `json:"id" jsonschema:"hymn id as reported by search_hymns"`
}

// HymnOutput is the full text of one hymn.
type HymnOutput struct {
	ID       int    `json:"id"`
	Language string `json:"language"`
	Number   int    `json:"number,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
}

// IndexStatusInput defines the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput describes every supported language.
type IndexStatusOutput struct {
	Languages []LanguageStatusOutput `json:"languages"`
}

// LanguageStatusOutput describes one language's published index.
type LanguageStatusOutput struct {
	Language   string `json:"language"`
	Ready      bool   `json:"ready"`
	Generation string `json:"generation,omitempty"`
	Model      string `json:"model,omitempty"`
	Hymns      int    `json:"hymns"`
	Chunks     int    `json:"chunks"`
	BuiltAt    string `json:"built_at,omitempty" jsonschema:"RFC3339 build time"`
}
