package structures

// Config holds the application configuration
type Config struct {
	SheetID         string `json:"sheet_id" mapstructure:"sheet_id"`
	CredentialsPath string `json:"credentials_path" mapstructure:"credentials_path"`
	GitHubTokenFile string `json:"github_token_file" mapstructure:"github_token_file"`
	Timezone        string `json:"timezone" mapstructure:"timezone"`
	LogLevel        string `json:"log_level" mapstructure:"log_level"`
	LogFile         string `json:"log_file,omitempty" mapstructure:"log_file"`
	LogFormat       string `json:"log_format,omitempty" mapstructure:"log_format"`
}

// RepoRecord is one line of the repository list CSV
type RepoRecord struct {
	No   string `csv:"NO"`
	ID   string `csv:"REPO_ID_SUFFIX"`
	Name string `csv:"REPO_ID"`
	URL  string `csv:"REPO_URL"`
}

// TagRecord is one line of the tag lookup output
type TagRecord struct {
	RepoID string `csv:"REPO_ID_SUFFIX"`
	Tag    string `csv:"TAG"`
	Commit string `csv:"COMMIT"`
	Date   string `csv:"DATE"`
}
