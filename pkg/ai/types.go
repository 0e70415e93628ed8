package ai

// Commit is one commit fed into a draft
type Commit struct {
	Hash         string `json:"hash"`
	Message      string `json:"message"`
	Author       string `json:"author"`
	FilesChanged int    `json:"files_changed"`
}

// DraftInput is everything a PR draft is generated from
type DraftInput struct {
	Repository   string   `json:"repository"`
	Base         string   `json:"base"`
	Head         string   `json:"head"`
	Commits      []Commit `json:"commits"`
	TemplateBody string   `json:"template_body"`
}

// PRContent represents generated PR content
type PRContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Generated   bool   `json:"ai_generated"`
}
