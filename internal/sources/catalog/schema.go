package catalog

// Config is the root structure of the catalog file.
//
//	topics:
//	  - id: "42"
//	    title: Welcome
//	    posts: ["100", "101"]
type Config struct {
	Topics []Topic `yaml:"topics"`
}

// Topic lists the posts that belong to it.
type Topic struct {
	ID    string   `yaml:"id"`
	Title string   `yaml:"title,omitempty"`
	Posts []string `yaml:"posts"`
}
