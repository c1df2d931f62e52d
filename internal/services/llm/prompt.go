package llm

import (
	"fmt"
	"strings"
)

// SummarizationSystemPrompt instructs the model to extract a structured
// summary with entities and quotes.
const SummarizationSystemPrompt = `You are a content analyst. Your job is to summarize podcasts and newsletters for busy professionals.

For each piece of content, extract:
1. **Summary** (2-3 sentences): What is this about? Why does it matter?
2. **Key topics** (3-5 topics): Main themes or subjects discussed
3. **Companies** (0-5): Companies mentioned, with 1-sentence context
4. **Tools** (0-5): Tools, products, or technologies mentioned, with 1-sentence context
5. **Quotes** (2-4): Most interesting or insightful quotes (with timestamps for podcasts)

Be concise. Focus on actionable insights.`

// RatingSystemPrompt instructs the model to score content conservatively on
// a 1-5 scale.
const RatingSystemPrompt = `You are a content quality rater. Your job is to rate podcasts and newsletters on a 1-5 scale based on their value to a busy professional interested in technology, business, and personal growth.

Rating scale:
- 5: Exceptional - Must-read/listen, highly actionable or insightful
- 4: Very good - Worth deep dive, clear takeaways
- 3: Good - Interesting but not urgent
- 2: Mediocre - Low signal, mostly filler
- 1: Poor - Not worth time, skip

**Be conservative with ratings:**
- 5s should be rare (top 5% of content)
- 4s should be uncommon (top 20%)
- Most content should be rated 3
- 2s and 1s for low-quality or off-topic content

Output JSON with rating (1-5) and rationale (one sentence).`

func summarizationUserPrompt(kind, title, author, date, text string) string {
	return fmt.Sprintf(`Analyze this content:

Type: %s
Title: %s
Author: %s
Date: %s

Content:
%s

Output JSON with the following structure:
{
  "summary": "2-3 sentence summary",
  "key_topics": ["topic1", "topic2", ...],
  "companies": [{"name": "Company", "context": "Brief context"}, ...],
  "tools": [{"name": "Tool", "context": "Brief context"}, ...],
  "quotes": [{"text": "Quote text", "timestamp": "12:34 or section name"}, ...]
}`, kind, title, author, date, text)
}

func ratingUserPrompt(kind, title, summary string, keyTopics []string) string {
	return fmt.Sprintf(`Rate this content:

Type: %s
Title: %s
Summary: %s
Key topics: %s

Output JSON:
{
  "rating": 3,
  "rationale": "One sentence explaining the rating"
}`, kind, title, summary, strings.Join(keyTopics, ", "))
}
