package persona

import (
	"github.com/firebase/genkit/go/ai"

	"github.com/dvega/askme/internal/session"
)

// Assemble builds the ordered model input for a routed question: the
// rule's behavioral directive, the retrieved context, the prior
// conversation history, and the current question, in that order.
//
// The context is embedded in the system message for persona and section
// modes. General mode omits it entirely: a neutral assistant must not
// see the persona's private material. Fixed-reply routes never reach the
// model, so calling Assemble for one is a programming error handled by
// returning nil.
func Assemble(route Route, contextText string, history []session.Message, question string) []*ai.Message {
	if route.Mode == ModeFixed {
		return nil
	}

	system := Directive(route)
	if contextText != "" && route.Mode != ModeGeneral {
		system += "\n\nContext:\n" + contextText
	}

	messages := make([]*ai.Message, 0, len(history)+2)
	messages = append(messages, ai.NewSystemMessage(ai.NewTextPart(system)))

	for _, msg := range history {
		switch msg.Role {
		case session.RoleHuman:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(msg.Content)))
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(msg.Content)))
		}
	}

	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))
	return messages
}
