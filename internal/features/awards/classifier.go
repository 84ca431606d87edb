// Package awards — classifier.go находит команду выдачи в тексте комментария.
//
// Порядок проверки (первое совпадение выигрывает):
//  1. триггер модераторов → KindMod
//  2. обычный триггер + сразу u/имя → KindAlternate
//  3. обычный триггер → KindNormal
//
// Триггер внутри цитаты, кода или спойлера командой не считается.
// Разметку разбирает goldmark, спойлеры Reddit (>!...!<) вырезаются заранее,
// иначе goldmark принял бы их за цитату.
package awards

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var spoilerPattern = regexp.MustCompile(`(?s)>!(.*?)!<`)

var markdown = goldmark.New()

// Classification — что нашлось в комментарии.
type Classification struct {
	// Command == nil, если команды в обычном тексте нет
	Command *Command
	// Ignored — виды разметки, где нашёлся триггер (только если Command == nil)
	Ignored []ContextKind
}

// Classifier собирается из снимка настроек на каждое событие.
type Classifier struct {
	triggers []string
	alt      []*regexp.Regexp
	mod      string
}

// NewClassifier создаёт классификатор. Пустые триггеры пропускаются.
func NewClassifier(triggers []string, modTrigger string) *Classifier {
	c := &Classifier{mod: strings.TrimSpace(modTrigger)}
	for _, t := range triggers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		c.triggers = append(c.triggers, t)
		c.alt = append(c.alt, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(t)+`[ \t]*/?u/(\S*)`))
	}
	return c
}

// Classify разбирает текст комментария.
func (c *Classifier) Classify(body string) Classification {
	segments := splitContexts(body)

	if cmd := c.match(segments.plain); cmd != nil {
		return Classification{Command: cmd}
	}

	var ignored []ContextKind
	for _, kind := range ContextKinds {
		if c.match(segments.contexts[kind]) != nil {
			ignored = append(ignored, kind)
		}
	}
	return Classification{Ignored: ignored}
}

// match ищет команду в тексте без учёта разметки.
func (c *Classifier) match(body string) *Command {
	if body == "" {
		return nil
	}
	if c.mod != "" && containsFold(body, c.mod) {
		return &Command{Kind: KindMod, Trigger: c.mod}
	}
	for i, re := range c.alt {
		if m := re.FindStringSubmatch(body); m != nil {
			return &Command{Kind: KindAlternate, Trigger: c.triggers[i], Target: cleanTarget(m[1])}
		}
	}
	for _, t := range c.triggers {
		if containsFold(body, t) {
			return &Command{Kind: KindNormal, Trigger: t}
		}
	}
	return nil
}

// Classify — разбор одним вызовом, без сохранения классификатора.
func Classify(body string, triggers []string, modTrigger string) Classification {
	return NewClassifier(triggers, modTrigger).Classify(body)
}

// cleanTarget отрезает пунктуацию, которой часто заканчивают упоминание: "u/bob!" → "bob".
func cleanTarget(raw string) string {
	return strings.TrimRight(raw, ".,!?;:)]}'\"*")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type contextSegments struct {
	plain    string
	contexts map[ContextKind]string
}

// splitContexts делит текст на обычный и на цитаты, код и спойлеры.
func splitContexts(body string) contextSegments {
	out := contextSegments{contexts: make(map[ContextKind]string)}

	var spoilers strings.Builder
	body = spoilerPattern.ReplaceAllStringFunc(body, func(m string) string {
		spoilers.WriteString(spoilerPattern.FindStringSubmatch(m)[1])
		spoilers.WriteByte('\n')
		return " "
	})
	out.contexts[ContextSpoiler] = spoilers.String()

	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var plain, quote, code strings.Builder
	quoteDepth := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindBlockquote:
			if entering {
				quoteDepth++
			} else {
				quoteDepth--
			}
			return ast.WalkContinue, nil
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			if entering {
				code.Write(n.Lines().Value(src))
				code.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock, ast.KindHTMLBlock:
			if !entering {
				return ast.WalkContinue, nil
			}
			line := leafText(n, src, &code)
			if quoteDepth > 0 {
				quote.WriteString(line)
				quote.WriteByte('\n')
			} else {
				plain.WriteString(line)
				plain.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	out.plain = plain.String()
	out.contexts[ContextQuote] = quote.String()
	out.contexts[ContextCode] += code.String()
	return out
}

// leafText возвращает исходный текст блока, где содержимое `кода` заменено пробелами.
// Содержимое кода дописывается в code.
func leafText(n ast.Node, src []byte, code *strings.Builder) string {
	lines := n.Lines()
	if lines.Len() == 0 {
		return ""
	}

	type span struct{ start, stop int }
	var masked []span
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || child.Kind() != ast.KindCodeSpan {
			return ast.WalkContinue, nil
		}
		for c := child.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				masked = append(masked, span{t.Segment.Start, t.Segment.Stop})
				code.Write(t.Segment.Value(src))
			}
		}
		code.WriteByte('\n')
		return ast.WalkSkipChildren, nil
	})

	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		for pos := seg.Start; pos < seg.Stop; pos++ {
			hidden := false
			for _, m := range masked {
				if pos >= m.start && pos < m.stop {
					hidden = true
					break
				}
			}
			if hidden {
				b.WriteByte(' ')
			} else {
				b.WriteByte(src[pos])
			}
		}
	}
	return b.String()
}
