package generation

import (
	"fmt"
	"strings"
)

// FailureNotice replaces generated text when every provider failed.
const FailureNotice = "Sorry, a technical error occurred while preparing this answer. Our team will follow up with you directly."

const analystSystemPrompt = `You are the lead business analyst at PipelogicAI.

Rules:
1. Context: study the client's type of business carefully. Features and questions must be relevant to that niche only. For a barbershop that means booking, choosing a barber, loyalty programs, not generic SaaS or e-commerce carts.
2. Phase 1 (timelines only): describe features and delivery timelines. Never mention prices.
3. Phase 2 (budgets): add a financial estimate to the options already described.
4. Structure: always offer a "Basic (MVP)" and an "Advanced (Scale)" option.
5. Tone: expert and businesslike. Answer in the language the client writes in.`

const questionsSystemPrompt = `You are a senior analyst. Generate 5 domain-specific discovery questions for a product requirements document. Options must be relevant to the client's niche (for a barbershop ask about booking, staff management or loyalty). Return only a JSON array of objects with fields "id", "text" and "options" (an array of 4 strings).`

const timelineSystemPrompt = "Expert business analyst. Provide implementation options strictly tailored to the client's business niche. No generic templates. NO PRICES."

const budgetSystemPrompt = "Expert business analyst. Add realistic budget estimates to the existing niche-specific options. Keep the same sections and order."

func questionsPrompt(description string) string {
	return fmt.Sprintf(`Project description: %q.
Generate 5 specific questions that clarify the requirements. Questions must be as relevant as possible to the business niche. Give 4 answer options for each question.
Return the answer STRICTLY as a JSON array.`, description)
}

func timelinePrompt(description, answerSummary, userName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client: %s.\n", userName)
	fmt.Fprintf(&b, "Project description: %q.\n", description)
	fmt.Fprintf(&b, "Answers to the clarifying questions:\n%s\n\n", answerSummary)
	b.WriteString("TASK: produce two implementation options (MVP and Full) that STRICTLY match the specifics of the business. ")
	b.WriteString("State only FEATURES and TIMELINES. NO PRICES.")
	return b.String()
}

func budgetPrompt(priorReport string) string {
	return fmt.Sprintf("Here is the previous report:\n%s\n\nTASK: add an approximate BUDGET to each option.", priorReport)
}
