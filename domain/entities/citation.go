package entities

// Citation maps an inline [n] marker in generated text to its retrieval source
type Citation struct {
	CitationNumber int             `json:"citation_number"`
	Source         *CitationSource `json:"source,omitempty"`
}

// CitationSource describes the retrieved passage behind a citation
type CitationSource struct {
	Title   string     `json:"title"`
	URI     string     `json:"uri,omitempty"`
	Excerpt string     `json:"excerpt,omitempty"`
	Pages   *PageRange `json:"pages,omitempty"`
}

// PageRange is the page span of a retrieved passage
type PageRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}
