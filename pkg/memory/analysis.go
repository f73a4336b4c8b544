package memory

import (
	"strings"
)

// The vocabularies below are a deliberately simple, swappable classification
// strategy: deterministic keyword matching from text to bounded topic sets
// and fixed enums. The call contracts, not the word lists, are the stable
// interface.

// topicVocabulary is the fixed topic vocabulary, matched case-insensitively
// as substrings in first-match order.
var topicVocabulary = []string{
	"faith", "prayer", "salvation", "grace", "forgiveness",
	"love", "hope", "peace", "joy", "wisdom",
	"scripture", "bible", "gospel", "jesus", "christ",
	"god", "holy spirit", "trinity", "church", "worship",
	"sin", "redemption", "resurrection", "heaven", "baptism",
	"communion", "doubt", "suffering", "healing", "marriage",
	"family", "anxiety", "purpose", "calling", "discipleship",
}

// conversationTypeKeywords maps each conversation type to its trigger
// keywords. Precedence is fixed by conversationTypeOrder: the first type
// with any keyword present in the batch wins.
var conversationTypeKeywords = map[ConversationType][]string{
	TypeBibleStudy:  {"bible", "scripture", "verse", "chapter", "passage", "testament"},
	TypeApologetics: {"evidence", "argument", "defend", "skeptic", "objection", "proof"},
	TypeSpiritual:   {"prayer", "worship", "spirit", "devotion", "fasting"},
	TypeTheological: {"doctrine", "theology", "trinity", "salvation", "predestination"},
	TypePersonal:    {"i feel", "my life", "struggling", "help me", "advice"},
}

var conversationTypeOrder = []ConversationType{
	TypeBibleStudy,
	TypeApologetics,
	TypeSpiritual,
	TypeTheological,
	TypePersonal,
}

// positiveWords and negativeWords drive the three-way tone classification.
var positiveWords = []string{
	"love", "joy", "peace", "hope", "grace", "blessed", "thankful",
	"grateful", "wonderful", "amazing", "encouraged", "comfort", "happy",
}

var negativeWords = []string{
	"sad", "angry", "fear", "worried", "anxious", "doubt", "pain",
	"suffering", "lost", "struggle", "afraid", "guilt", "lonely",
}

// maxKeyTopics caps the topic set extracted from a text.
const maxKeyTopics = 5

// extractKeyTopics returns up to maxKeyTopics vocabulary terms found in the
// text, in vocabulary order.
func extractKeyTopics(text string) []string {
	lower := strings.ToLower(text)

	var topics []string
	for _, topic := range topicVocabulary {
		if strings.Contains(lower, topic) {
			topics = append(topics, topic)
			if len(topics) == maxKeyTopics {
				break
			}
		}
	}

	return topics
}

// classifyConversationType classifies the batch text by the first matching
// type in precedence order, falling back to general.
func classifyConversationType(text string) ConversationType {
	lower := strings.ToLower(text)

	for _, conversationType := range conversationTypeOrder {
		for _, keyword := range conversationTypeKeywords[conversationType] {
			if strings.Contains(lower, keyword) {
				return conversationType
			}
		}
	}

	return TypeGeneral
}

// analyzeTone counts positive versus negative word occurrences; ties are
// neutral.
func analyzeTone(text string) Tone {
	lower := strings.ToLower(text)

	var positive, negative int
	for _, word := range positiveWords {
		positive += strings.Count(lower, word)
	}
	for _, word := range negativeWords {
		negative += strings.Count(lower, word)
	}

	switch {
	case positive > negative:
		return TonePositive
	case negative > positive:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// semanticChunk returns the single most information-dense sentence of the
// content: the longest sentence after splitting on sentence terminators and
// discarding fragments of 10 characters or fewer. Falls back to the whole
// content when no sentence survives.
func semanticChunk(content string) string {
	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var longest string
	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if len(trimmed) <= 10 {
			continue
		}
		if len(trimmed) > len(longest) {
			longest = trimmed
		}
	}

	if longest == "" {
		return content
	}
	return longest
}

// conversationFlow derives a message's flow marker from its position in the
// batch and the adjacent roles.
func conversationFlow(index, total int, role, previousRole Role) Flow {
	switch {
	case index == 0:
		return FlowStart
	case index == total-1:
		return FlowEnd
	case role == RoleAssistant && previousRole == RoleUser:
		return FlowAnswer
	case role == RoleUser && previousRole == RoleAssistant:
		return FlowQuestion
	default:
		return FlowContinuation
	}
}
