package llm

import "fmt"

const fence = "```"

// ExplainPrompt asks for a plain-language explanation of a code selection.
func ExplainPrompt(code, language string) string {
	return fmt.Sprintf(`Explain this %[1]s code in simple terms. Be concise and helpful.

Code:
%[3]s%[1]s
%[2]s
%[3]s

Provide a clear explanation of what this code does.`, language, code, fence)
}

// AnalyzePrompt asks for a JSON quality report of a code selection.
func AnalyzePrompt(code, language string) string {
	return fmt.Sprintf(`Analyze this %[1]s code for quality, issues, and improvements.
Provide a JSON response with score (1-10), summary, suggestions, and issues.

Code:
%[3]s%[1]s
%[2]s
%[3]s`, language, code, fence)
}

// RepositoryPrompt asks for a sectioned review of a whole repository context.
func RepositoryPrompt(repoContext string) string {
	return `You are analyzing an entire codebase. Provide a comprehensive analysis.

` + repoContext + `

Please analyze this codebase and provide:

1. **Architecture Overview**: What is the overall structure and architecture pattern?
2. **Tech Stack**: What technologies, frameworks, and libraries are being used?
3. **Main Features**: What are the key features/functionality of this project?
4. **Code Quality**: Overall code quality assessment (1-10)
5. **Strengths**: Top 3 strengths of this codebase
6. **Issues**: Top 5 issues or areas for improvement
7. **Dependencies**: Key dependencies and how components interact
8. **Security Concerns**: Any potential security issues
9. **Performance Considerations**: Any performance bottlenecks or optimizations
10. **Recommendations**: Top 3 actionable recommendations for improvement

Format your response clearly with headers and bullet points.`
}

// QuestionPrompt asks a free-form question about a repository context.
func QuestionPrompt(repoContext, question string) string {
	return `Based on this codebase:

` + repoContext + `

User Question: ` + question + `

Please provide a detailed answer referencing specific files and code when relevant.`
}

// RelatedPrompt asks which files relate to a search term.
func RelatedPrompt(previews, term string) string {
	return `Given this codebase structure and content:

` + previews + `

Find all files related to: "` + term + `"

List the most relevant files and explain why they're related.`
}

// CompletionPrompt asks for labeled COMPLETION/EXPLANATION pairs at a cursor.
func CompletionPrompt(contextText, language string, line, character int, word string) string {
	return fmt.Sprintf(`Based on this %[1]s code context, suggest completions for the current position.
Current word: "%[2]s"
Cursor position: line %[3]d, character %[4]d

Code context:
%[6]s%[1]s
%[5]s
%[6]s

Provide 3-5 relevant code completions. Format each as:
COMPLETION: [the actual code to insert]
EXPLANATION: [brief explanation]

Focus on:
1. Method/function completions
2. Variable names
3. API calls
4. Syntax completion`, language, word, line, character, contextText, fence)
}
