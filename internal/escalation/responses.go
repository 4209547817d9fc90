package escalation

// Response is the user-facing template surfaced by the caller when a
// conversation is escalated.
type Response struct {
	Message   string   `json:"message"`
	Resources []string `json:"resources,omitempty"`
}

var crisisResources = []string{
	"988 Suicide & Crisis Lifeline: call or text 988 (US)",
	"Crisis Text Line: text HOME to 741741",
	"International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/",
	"Emergency services: 911 (US) / 112 (EU)",
}

var responses = map[string]Response{
	TypeCrisis: {
		Message: "I'm really sorry you're going through this. You don't have to face it alone. " +
			"Please reach out to one of the resources below, they are available right now and want to help.",
		Resources: crisisResources,
	},
	TypeLegal: {
		Message: "I understand this is a legal matter. I've flagged your conversation for our team, " +
			"and a specialist will follow up with you as soon as possible.",
	},
	TypeComplaint: {
		Message: "I'm sorry about your experience. I've passed your conversation to a member of our team " +
			"who will get back to you shortly.",
	},
	TypeSentiment: {
		Message: "I'm sorry this has been frustrating. I've let our team know so a person can look into it for you.",
	},
}

var genericResponse = Response{
	Message: "I've flagged your conversation for our team, and someone will follow up with you soon.",
}

// ResponseFor returns the template for an escalation type.
func ResponseFor(escalationType string) Response {
	if r, ok := responses[escalationType]; ok {
		return r
	}
	return genericResponse
}
