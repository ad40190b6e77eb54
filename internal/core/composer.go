package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

// Generator produces a reply from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type ReplySource string

const (
	SourceGenerated ReplySource = "generated"
	SourceFallback  ReplySource = "fallback"
)

const (
	DefaultGenerationTimeout = 15 * time.Second

	promptCandidateLimit   = 5
	fallbackCandidateLimit = 3
	descriptionPreviewLen  = 100
)

// DefaultRootCategories is offered when the store cannot list its own.
var DefaultRootCategories = []string{"Electronics", "Clothing", "Books", "Home & Garden", "Sports"}

const assistantSystemPrompt = "You are an intelligent ecommerce chatbot assistant. Your role is to help customers find products, " +
	"answer questions about inventory, and provide excellent customer service. " +
	"Be helpful and friendly, focus on understanding customer needs, and be specific about product recommendations. " +
	"When relevant products are listed, mention them by name with their price. If none match, suggest alternatives " +
	"or ask a clarifying question. Always respond in a conversational tone."

const greetingReply = "Hello! Welcome to our store. How can I help you find the perfect product today?"

var greetingPattern = regexp.MustCompile(`\b(hello|hi|hey|good morning|good afternoon)\b`)

var categoryReplies = map[string]string{
	"electronics": "We have a great selection of electronics including smartphones, laptops, headphones, and more. " +
		"What specific type of electronic device are you looking for?",
	"clothing": "Our clothing section has everything from casual wear to formal attire. " +
		"Are you looking for something specific like jeans, shoes, or hoodies?",
	"books": "We have a wonderful collection of books including fiction, non-fiction, and technical guides. " +
		"What genre interests you?",
	"home & garden": "Our home & garden range covers furniture, lighting, decor, and gardening supplies. " +
		"Which room or project are you shopping for?",
	"sports": "We stock equipment for tennis, basketball, fitness training, and more. " +
		"Which sport are you shopping for?",
}

// ReplyInput is everything the composer needs for one exchange.
type ReplyInput struct {
	Message    string
	Context    MessageContext
	Candidates []store.Product
	Categories []string // top-level category names, used when there are no candidates
}

// Composer turns a chat message into a reply, through the generator when one is
// configured and through fixed templates otherwise or on any generator failure.
type Composer struct {
	gen     Generator
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewComposer builds a composer. gen may be nil, in which case every reply is a fallback.
func NewComposer(gen Generator, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Composer {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Composer{
		gen:     gen,
		timeout: timeout,
		log:     log.With("service", "Composer"),
		metrics: m,
	}
}

func (c *Composer) GenerationEnabled() bool {
	return c.gen != nil
}

func (c *Composer) Compose(ctx context.Context, in ReplyInput) (string, ReplySource) {
	if c.gen != nil {
		if reply, ok := c.generate(ctx, in); ok {
			return reply, SourceGenerated
		}
	}
	return FallbackReply(in), SourceFallback
}

func (c *Composer) generate(ctx context.Context, in ReplyInput) (reply string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Generator panicked", "panic", r)
			c.metrics.RecordGenerationFailure()
			reply, ok = "", false
		}
	}()

	out, err := c.gen.Generate(ctx, assistantSystemPrompt, buildPrompt(in))
	if err != nil {
		c.log.Warn("Generation failed, using fallback reply", "error", err)
		c.metrics.RecordGenerationFailure()
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		c.log.Warn("Generator returned an empty reply, using fallback reply")
		c.metrics.RecordGenerationFailure()
		return "", false
	}
	return out, true
}

func buildPrompt(in ReplyInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer message: %q\n\n", in.Message)
	b.WriteString("Available products context:\n")
	if len(in.Candidates) > 0 {
		b.WriteString("Here are some relevant products from our inventory:\n")
		for i, p := range in.Candidates {
			if i == promptCandidateLimit {
				break
			}
			fmt.Fprintf(&b, "- %s: $%.2f - %s", p.Name, p.Price, preview(p.Description))
			if tags := p.TagList(); len(tags) > 0 {
				fmt.Fprintf(&b, " (tags: %s)", strings.Join(tags, ", "))
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "No specific products found matching the query, but we have %s categories available.\n",
			joinNames(categoryNames(in.Categories)))
	}
	b.WriteString("\nPlease respond as a helpful ecommerce chatbot. If relevant products are available, mention them specifically. " +
		"If not, suggest alternatives or ask clarifying questions to help the customer find what they need.")
	return b.String()
}

// FallbackReply is the deterministic reply. Equal inputs always give equal output.
func FallbackReply(in ReplyInput) string {
	lower := strings.ToLower(in.Message)

	if greetingPattern.MatchString(lower) {
		return greetingReply
	}

	if len(in.Candidates) > 0 {
		var b strings.Builder
		b.WriteString("I found some products that might interest you:\n\n")
		for i, p := range in.Candidates {
			if i == fallbackCandidateLimit {
				break
			}
			fmt.Fprintf(&b, "%d. **%s** - $%.2f\n", i+1, p.Name, p.Price)
			fmt.Fprintf(&b, "   %s\n\n", preview(p.Description))
		}
		b.WriteString("Would you like more details about any of these products?")
		return b.String()
	}

	if reply, ok := categoryReplies[in.Context.Category]; ok {
		return reply
	}

	return fmt.Sprintf("I'd be happy to help you find what you're looking for! We have products in %s. What are you interested in?",
		joinNames(categoryNames(in.Categories)))
}

func categoryNames(names []string) []string {
	if len(names) == 0 {
		return DefaultRootCategories
	}
	return names
}

// joinNames renders "A, B, and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= descriptionPreviewLen {
		return s
	}
	return string(r[:descriptionPreviewLen]) + "..."
}
