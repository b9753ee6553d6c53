package generation

import (
	"fmt"
	"strings"
)

// Sections are the parts every blueprint specification covers, in order.
var Sections = []string{
	"Project Overview",
	"Architecture Overview",
	"Database Schema",
	"API Design",
	"Authentication & Authorization",
	"Frontend Components",
	"State Management",
	"Data Flow",
	"UI/UX Wireframes",
	"Color Palettes & Themes",
	"Branding & Logo Ideas",
	"Monetization Strategy",
	"Pitch & Value Proposition",
	"Security",
	"Monitoring & Analytics",
	"Deployment",
	"Scalability",
	"Testing",
	"Documentation",
	"Development Roadmap",
}

// SystemInstruction frames a blueprint generation.
var SystemInstruction = buildSystemInstruction()

// ImproveInstruction frames a prompt rewrite.
const ImproveInstruction = `You are an expert prompt engineer. Rewrite the user's app idea as a concise, technical prompt for blueprint generation.

Rules:
- Stay under 1000 characters.
- Be specific about the target users and the core features.
- Use plain technical language with no filler.

Format:
[App Type] for [Target Users] that [Core Value]. Features: [Key Features]. Tech: [Key Technical Requirements].

Example:
Input: "A workout app"
Output: "Personal fitness tracking app for gym enthusiasts enabling workout planning, progress monitoring, and social challenges. Features: exercise library, custom routines, progress charts, nutrition tracking, wearable sync. Tech: offline mode, data export, push notifications."

Now improve:`

func buildSystemInstruction() string {
	var b strings.Builder
	b.WriteString(`You are an application architect. Turn the user's app idea into a complete technical specification that code-generation models can build from directly.

Respond with a single Markdown document laid out exactly like this:
1. A creative app name on the first line, on its own.
2. One blank line.
3. The full project structure as a tree, inside a fenced code block tagged "tree".
4. One blank line.
5. The specification, one "##" heading per part.

Do not write code. Describe behavior, schemas and pseudo-logic instead. Skip greetings, apologies and vague advice.

Default stack: Next.js with TypeScript, Supabase for database and auth, Tailwind CSS, deployed on Vercel.

Specification parts:
`)
	for i, section := range Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}
	return b.String()
}
