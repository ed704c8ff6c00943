package models

// PageCookie is a browser cookie captured from the remote page, used in
// failure forensics.
type PageCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

// PageSnapshot is a best-effort forensic capture of the remote page taken
// when a pipeline run fails.
type PageSnapshot struct {
	URL        string                 `json:"url"`
	HTML       string                 `json:"html,omitempty"`
	Cookies    []PageCookie           `json:"cookies,omitempty"`
	Navigator  map[string]interface{} `json:"navigator,omitempty"`
	Perf       map[string]interface{} `json:"performance,omitempty"`
	ReadyState string                 `json:"ready_state,omitempty"`
}
