package scan

// UnknownLanguage labels extensions missing from the table.
const UnknownLanguage = "Unknown"

var languages = map[string]string{
	".js": "JavaScript", ".ts": "TypeScript", ".jsx": "React",
	".tsx": "React TypeScript", ".py": "Python", ".java": "Java",
	".cpp": "C++", ".c": "C", ".go": "Go", ".rs": "Rust",
	".rb": "Ruby", ".php": "PHP", ".cs": "C#", ".swift": "Swift",
	".kt": "Kotlin", ".scala": "Scala", ".html": "HTML",
	".css": "CSS", ".scss": "SCSS", ".json": "JSON",
	".yml": "YAML", ".yaml": "YAML", ".md": "Markdown",
}

// LanguageFor maps a file extension (with dot) to a display label.
func LanguageFor(ext string) string {
	if l, ok := languages[ext]; ok {
		return l
	}
	return UnknownLanguage
}
