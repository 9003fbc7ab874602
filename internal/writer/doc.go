// Package writer requests an article plan from a language model.
//
// BuildPrompt turns a formatted transcript and the user's writing
// instruction into the plan request; a Client (OpenAI-compatible chat
// completions or Gemini) returns raw JSON text, and Writer runs the request
// under the shared retry policy before handing the text to plan.Parse.
// Validation stays in internal/plan, so a plan produced here goes through
// exactly the same checks as one loaded from disk.
package writer
