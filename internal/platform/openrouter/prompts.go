package openrouter

import (
	"fmt"
	"strings"

	"github.com/normscout/normscout-backend/internal/domain"
)

func transcript(history []domain.ConversationTurn) string {
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		speaker := "Assistant"
		if turn.Role == domain.TurnRoleUser {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

func normCheckPrompt(productDescription string, norm domain.Norm) string {
	return fmt.Sprintf(`You are an EU compliance expert. Analyze if this norm applies to the product.

PRODUCT: %s

NORM: %s (%s)
APPLIES TO: %s
DESCRIPTION: %s

INSTRUCTIONS:
- Read the "APPLIES TO" field carefully and check if the product matches those criteria
- Pay close attention to voltage ranges, thresholds, and numeric values
- If the norm specifies a minimum voltage (e.g., ">75V DC"), the product voltage must be GREATER than that value
- Be precise with technical specifications
- Answer in this EXACT format:

APPLIES: yes/no
CONFIDENCE: 0-100
REASONING: brief explanation

Be critical, accurate, and precise with numbers.`,
		productDescription, norm.Name, norm.ID, norm.AppliesTo, norm.Description)
}

func completenessPrompt(history []domain.ConversationTurn) string {
	return fmt.Sprintf(`You are an EU compliance expert. Review this product conversation and determine if we have enough information for accurate compliance norm matching.

CONVERSATION:
%s

CRITICAL INFORMATION NEEDED:
1. Is it an electrical/electronic product? (yes/no)
2. Power source (battery, mains AC, USB, PoE, solar, etc.)
3. Voltage/current specifications (especially for mains-powered devices)
4. Wireless features (WiFi, Bluetooth, cellular, none, etc.)
5. Product category (lighting, IoT, IT equipment, household appliance, etc.)
6. For battery devices: rechargeable or disposable? If rechargeable, how is it charged?

RESPONSE FORMAT (use exact format):
COMPLETE: yes/no
MISSING: comma-separated list of missing info (or "none" if complete)
REASONING: brief explanation

Be practical - if we have the essentials (power, voltage if applicable, wireless, category), we're good to go.`,
		transcript(history))
}

func followupPrompt(history []domain.ConversationTurn, missing []string) string {
	missingText := "general details"
	if len(missing) > 0 {
		missingText = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(`You are a friendly EU compliance expert having a conversation with a developer about their product.

CONVERSATION SO FAR:
%s

WHAT'S STILL UNCLEAR:
%s

Generate ONE natural, conversational follow-up question to clarify the MOST important missing detail.

RULES:
- Be friendly and conversational (like "Are we thinking rechargeable batteries or disposable ones?")
- Ask about the most critical missing piece first
- Keep it short and simple
- Don't ask multiple questions at once
- Use examples when helpful (e.g., "USB-C, micro-USB, or another type?")
- Build on what they've already told you

QUESTION:`,
		transcript(history), missingText)
}

func summaryPrompt(history []domain.ConversationTurn) string {
	return fmt.Sprintf(`You are an EU compliance expert. Based on this conversation, create a comprehensive technical product description.

CONVERSATION:
%s

Create a detailed product summary that includes:
- Product type and category
- Power source and specifications (voltage, current, watts)
- Wireless features (if any)
- Battery details (type, capacity, charging method)
- Intended use and environment
- Any other relevant technical details

Write it as a clear, structured technical description suitable for compliance assessment.

PRODUCT DESCRIPTION:`,
		transcript(history))
}
