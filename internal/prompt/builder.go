// Analysis prompt templates and builders for the external coding agent.
//
// USAGE:
//   - Build() assembles the full instruction prompt for one run
//   - EstimateTokens() sizes a prompt before handing it to the agent
//
// The prompt documents the AskUserQuestion tool contract the agent consumes;
// harforge only describes it, the agent implements it.
package prompt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Params carries the run-specific values interpolated into the prompt.
type Params struct {
	HARPath      string
	Goal         string
	ScriptsDir   string
	Instructions string // optional free-text additions
	RunID        string
	HistoryPath  string // message-history location for iterative runs
	Fresh        bool   // ignore previous implementation, start over
}

// analysisTemplate is the core instruction prompt. Placeholders: HAR path,
// user goal, output directory, then the output directory twice for the file
// paths.
const analysisTemplate = `You are tasked with analyzing a HAR (HTTP Archive) file to reverse engineer API calls,
and generate production-ready Python code that replicates those calls.

Here is the HAR file path you need to analyze:
<har_path>
%s
</har_path>

Here is the original user prompt with context about what they're trying to accomplish:
<user_prompt>
%s
</user_prompt>

Here is the output directory where you should save your generated files:
<output_dir>
%s
</output_dir>

**IMPORTANT: You have access to the AskUserQuestion tool to ask clarifying questions during your analysis.**
Use this tool when you need to clarify functional requirements, prioritize features, choose between implementation approaches, or gather any other information that would help you generate better code.

Your task is to:

1. **Read and analyze the HAR file** to understand all API calls that were captured. Look for:
   - HTTP methods (GET, POST, PUT, DELETE, etc.)
   - Request URLs and endpoints
   - Request headers (especially authentication-related ones)
   - Request bodies and parameters
   - Response structures
   - Response status codes

2. **Identify authentication patterns** such as:
   - Cookies and session tokens
   - Authorization headers (Bearer tokens, API keys, etc.)
   - CSRF tokens or other security mechanisms
   - Custom authentication headers

3. **Extract request/response patterns** for each distinct endpoint:
   - Required vs optional parameters
   - Data formats (JSON, form data, etc.)
   - Query parameters vs body parameters
   - Response data structures

4. **Ask clarifying questions using AskUserQuestion** if needed:
   - When multiple authentication methods are found, ask which to prioritize
   - If uncertain about feature priorities, ask the user
   - When implementation approaches are ambiguous, ask for preferences

5. **Generate a Python script** that replicates these API calls with the following requirements:
   - Use the requests library as the default choice
   - Include proper authentication handling (sessions, headers, tokens)
   - Create separate functions for each distinct API endpoint
   - Include type hints for all function parameters and return values
   - Write comprehensive docstrings for each function
   - Implement proper error handling with try-except blocks
   - Add logging for debugging purposes
   - Make the code production-ready and maintainable
   - Include a main section with example usage

6. **Create documentation**:
   - Generate a README.md file that explains what APIs were discovered, how
     authentication works, how to use each function, example usage, and any
     limitations or requirements

7. **Test your implementation**:
   - After generating the code, test it to ensure it works
   - You have up to 5 attempts to fix any issues
   - Keep in mind that some websites have bot detection mechanisms

8. **Handle bot detection**:
   - If you encounter bot detection, CAPTCHA, or anti-scraping measures with requests,
     consider switching to Playwright with CDP (Chrome DevTools Protocol) and the real
     user browser context, maintaining the same code quality standards

Before generating your code, use a scratchpad to plan your approach: summarize
the key endpoints found, note the authentication mechanism, plan the script
structure, and identify ambiguities worth an AskUserQuestion call.

After your analysis, generate the files:

1. Save the Python script to: %s/api_client.py
2. Save the documentation to: %s/README.md

After testing, provide your final response with a summary of the APIs
discovered, the authentication method used, whether the implementation works,
any limitations or caveats, and the paths to the generated files. Do not
include the full code in your response - just confirm the files were saved
and summarize the key findings.`

// askUserQuestionContract documents the tool-invocation contract the agent
// consumes. Each question carries a required question string, an optional
// header, required options with label and description, and multiSelect
// (default false).
const askUserQuestionContract = `

## Interactive Clarification with AskUserQuestion

You have access to the AskUserQuestion tool to ask clarifying questions during analysis:

<ask_user_question_guidelines>
Use AskUserQuestion when uncertain about functional requirements, feature
priorities, implementation approach choices, authentication details the user
might know, or specific workflows to support.

The tool accepts a list of questions with the following structure:

` + "```json" + `
{
  "questions": [
    {
      "question": "Which authentication should I prioritize?",
      "header": "Authentication",
      "options": [
        {"label": "Cookie-based session", "description": "Uses session cookies for auth"},
        {"label": "Bearer token", "description": "Uses JWT or API tokens"},
        {"label": "Both", "description": "Auto-detect and support both methods"}
      ],
      "multiSelect": false
    }
  ]
}
` + "```" + `

Question Structure:
- question (required): The question text
- header (optional): Short category label for context
- options (required): List of choices with labels and descriptions
- multiSelect (optional): true for checkbox selection, false for single select (default: false)

Guidelines:
- Ask 1-3 well-targeted questions that materially impact implementation
- Always provide options with clear labels and descriptions
- Use multiSelect: true when multiple options can be selected
- The user's answers will be returned in the tool result
</ask_user_question_guidelines>
`

// tagContextTemplate appends the tag-based re-engineer context: run id,
// HAR location, scripts dir, history path, fresh flag.
const tagContextTemplate = `

## Tag-Based Workflows

This session uses tag-based context loading:

- **@id %s**: Re-engineer mode active
  - Target run: %s
  - HAR location: %s
  - Existing scripts: %s
  - Message history: %s (available for reference if needed)
  - Fresh mode: %t

By default, treat this as an iterative refinement. The user's prompt describes
changes or improvements to make to the existing script. If fresh mode is
enabled, ignore previous implementation and start from scratch.

Note: Full message history is available at the messages path above if you need
to understand previous context, but it is not automatically loaded into this
conversation.
`

// Build assembles the complete instruction prompt for a run.
func Build(p Params) string {
	var b strings.Builder

	fmt.Fprintf(&b, analysisTemplate, p.HARPath, p.Goal, p.ScriptsDir, p.ScriptsDir, p.ScriptsDir)

	if p.Instructions != "" {
		fmt.Fprintf(&b, "\n\nAdditional instructions:\n%s", p.Instructions)
	}

	b.WriteString(askUserQuestionContract)

	// The location line names the capture's containing directory; the exact
	// file path already appears in the har_path block above.
	fmt.Fprintf(&b, tagContextTemplate,
		p.RunID, p.RunID, filepath.Dir(p.HARPath), p.ScriptsDir, p.HistoryPath, p.Fresh)

	return b.String()
}
