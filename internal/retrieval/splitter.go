package retrieval

import (
	"path/filepath"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

var (
	defaultSeparators = []string{"\n\n", "\n", " ", ""}
	pythonSeparators  = []string{"\nclass ", "\ndef ", "\n\t", "\n", " "}
	cStyleSeparators  = []string{
		"\nfunction ", "\nclass ", "\ninterface ",
		"\npublic ", "\nprivate ", "\nprotected ",
		"\nfunc", "\ntype",
		"\n\n", "\n", " ", "",
	}
	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// splitterFor returns a splitter tuned to the file's language so chunks
// break on structural boundaries instead of mid-declaration.
func splitterFor(filename string) textsplitter.TextSplitter {
	separators := defaultSeparators
	switch filepath.Ext(filename) {
	case ".md":
		separators = markdownSeparators
	case ".py":
		separators = pythonSeparators
	case ".go", ".js", ".ts", ".java", ".c", ".cpp", ".h", ".hpp", ".rs":
		separators = cStyleSeparators
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}

// indexableExtensions are the file types the indexer ingests. Everything
// else in the source tree is skipped.
var indexableExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".rs": true, ".md": true, ".txt": true, ".yaml": true, ".yml": true,
	".json": true, ".toml": true, ".sql": true, ".sh": true,
}

// SplitFile splits file content into chunks using the splitter for its type.
func SplitFile(filename, content string) ([]string, error) {
	return splitterFor(filename).SplitText(content)
}

// Indexable reports whether the indexer ingests files with this name.
func Indexable(filename string) bool {
	return indexableExtensions[filepath.Ext(filename)]
}
