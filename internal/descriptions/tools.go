package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Session Tools
	WizardLoadDocumentDescription = `Load a fillable PDF form and start a new wizard session.

**When to use:** First call of every workflow; nothing else works until a document is loaded.

**Why it's useful:** Extracts and normalizes every form field up front, so the guided flow, field listing and progress are all available immediately after loading.

**Examples:**
• Start filling a form: "Load /forms/w9.pdf and tell me what needs to be filled"
• Inspect a document: "Load application.pdf and list its fields"

**Common workflows:**
1. Guided filling: wizard_load_document → wizard_start → fill and wizard_next until submit
2. Bulk inspection: wizard_load_document → wizard_fields → wizard_jump to specific fields

**Best practices:** Loading a new document replaces the previous session entirely; values do not carry over.`

	WizardStateDescription = `Get the current wizard phase, current field, progress and the single available action.

**When to use:** Any time you need to re-orient: after a set_value, after navigation, or when resuming a conversation mid-form.

**Why it's useful:** The wizard offers exactly one primary action per phase; this tool tells you what it is and whether it is currently enabled.

**Common workflows:**
1. Resume: wizard_state → continue from the reported phase
2. Debug: wizard_state after every mutation to watch the flow advance`

	// Flow Tools
	WizardStartDescription = `Begin the guided flow and move to the first field in traversal order.

**When to use:** Once, right after loading a document.

**Why it's useful:** Positions the wizard on the first required field (top of the first page, left to right) so the user never hunts for where to begin.`

	WizardNextDescription = `Advance to the next incomplete field in traversal order.

**When to use:** After the current field has been filled via wizard_set_value.

**Why it's useful:** Skips already-completed fields automatically and switches to the signature step once every required field is done, then to submit when nothing is left.

**Best practices:** The call fails while the current field is empty or invalid; set a valid value first. Validation messages are returned by wizard_set_value and wizard_state.`

	WizardBackDescription = `Return to the previously visited field.

**When to use:** The user wants to revise an earlier answer.

**Why it's useful:** Replays the actual visit history, including jumps, so "back" always means "where I just was".`

	WizardJumpDescription = `Jump directly to a field, bypassing the traversal order.

**When to use:** The user names a specific field ("change my email"), or you want to fill fields out of order.

**Why it's useful:** Navigates the host to the field's page and screen position, and the wizard phase follows the target (signature fields put the wizard into the sign step).

**Best practices:** Use field IDs exactly as reported by wizard_fields.`

	// Data Tools
	WizardSetValueDescription = `Set the value of a field.

**When to use:** Whenever the user provides an answer for the current (or any) field.

**Why it's useful:** Stores the value, re-derives completion, and runs validation in one step. Invalid values are stored and reported, never silently dropped, so the user can see and fix what they typed.

**Parameter guide:**
• text: text, date, radio and dropdown selections, and encoded signature payloads
• checked: checkboxes only

**Best practices:** A field with validation errors blocks wizard_next but not wizard_jump; fix the reported problems before advancing.`

	WizardFieldsDescription = `List the form's fields in traversal order with their completion state.

**When to use:** To give the user an overview, find a field ID for wizard_jump, or check what is still missing.

**Why it's useful:** Shows every field the way the wizard will visit it: page by page, top to bottom, left to right, with required, read-only and signature flags.`

	WizardProgressDescription = `Get completion progress over the required fields.

**When to use:** For progress reporting ("you are 60% done") at any point in the flow.

**Why it's useful:** Counts only required, fillable fields, so the percentage reflects what actually stands between the user and submission. A form with no required fields reports 100%.`

	// Submission Tools
	WizardSubmitDescription = `Submit the completed form to the submission sink.

**When to use:** Only when the wizard is in the submit phase (wizard_next lands there after the last signature).

**Why it's useful:** Hands the collected values and signatures to the configured sink and reports a receipt. On failure the wizard stays in the submit phase with the failures listed, and a plain retry works without re-entering any field.

**Best practices:** Check the outcome: success carries a receipt, failure carries actionable failure messages.`
)
