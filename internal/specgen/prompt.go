package specgen

import "strings"

// promptTemplate is the fixed instructional contract sent with every
// transcript. The model must answer with a JSON object holding exactly
// project_name and specification_content.
const promptTemplate = `You are an expert software requirements analyst. Your task is to convert the following spoken requirements transcript into a detailed specs-driven development format.

Please analyze the transcript and create:
1. A comprehensive requirements document in markdown format
2. A suitable project repository name (kebab-case format)

The requirements document should include:
- Clear introduction section summarizing the feature
- Hierarchical numbered list of requirements
- Each requirement should have a user story in format: "As a [role], I want [feature], so that [benefit]"
- Numbered acceptance criteria in EARS format (Easy Approach to Requirements Syntax)
- Use WHEN/THEN/IF/SHALL structure for acceptance criteria

TRANSCRIPT:
{{transcript}}

Please respond in the following JSON format:
{
    "project_name": "project-name-in-kebab-case",
    "specification_content": "# Requirements Document\n\n## Introduction\n\n[content here]\n\n## Requirements\n\n### Requirement 1\n\n**User Story:** As a [role], I want [feature], so that [benefit]\n\n#### Acceptance Criteria\n\n1. WHEN [event] THEN [system] SHALL [response]\n2. IF [condition] THEN [system] SHALL [response]\n\n[continue with more requirements as needed]"
}

Ensure the project name is descriptive, uses kebab-case, and reflects the main purpose of the project described in the transcript.`

// buildPrompt embeds the transcript verbatim into the prompt contract.
func buildPrompt(transcript string) string {
	return strings.Replace(promptTemplate, "{{transcript}}", transcript, 1)
}
