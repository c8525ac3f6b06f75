package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHeadingLevel = 2
	maxHeadingLevel     = 6
)

// ImageResolver maps a remote image URL to a local filename
type ImageResolver interface {
	Resolve(ctx context.Context, remoteURL string) (string, bool)
}

// Converter renders Lexical node trees as Markdown/MDX
type Converter struct {
	images      ImageResolver
	html        *md.Converter
	linkPrefix  func(filename string) string
	concurrency int
}

// NewConverter creates a converter. concurrency bounds how many siblings
// of a single node are converted at once.
func NewConverter(images ImageResolver, linkPrefix func(string) string, concurrency int) *Converter {
	if concurrency < 1 {
		concurrency = 1
	}
	if linkPrefix == nil {
		linkPrefix = func(filename string) string { return filename }
	}
	return &Converter{
		images:      images,
		html:        md.NewConverter("", true, nil),
		linkPrefix:  linkPrefix,
		concurrency: concurrency,
	}
}

// Convert renders node at the given list indent level
func (c *Converter) Convert(ctx context.Context, node *Node, indent int) (string, error) {
	if node == nil {
		return "", nil
	}

	switch node.Type {
	case KindRoot:
		parts, err := c.convertChildren(ctx, node.Children, 0)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, "\n\n"), nil

	case KindHeading:
		content, err := c.joinChildren(ctx, node)
		if err != nil {
			return "", err
		}
		return strings.Repeat("#", headingLevel(node.Tag)) + " " + content, nil

	case KindParagraph:
		if len(node.Children) == 0 {
			return "", nil
		}
		return c.joinChildren(ctx, node)

	case KindText:
		return formatText(node.Text, node.Format), nil

	case KindLinebreak:
		return "  \n", nil

	case KindLink:
		content, err := c.joinChildren(ctx, node)
		if err != nil {
			return "", err
		}
		var href string
		if node.Fields != nil {
			href = node.Fields.URL
		}
		return fmt.Sprintf("[%s](%s)", content, href), nil

	case KindList:
		return c.convertList(ctx, node, indent)

	case KindListItem:
		return c.convertListItem(ctx, node, indent)

	case KindQuote:
		content, err := c.joinChildren(ctx, node)
		if err != nil {
			return "", err
		}
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n"), nil

	case KindUpload:
		return c.convertUpload(ctx, node), nil

	case KindBlock:
		return c.convertBlock(node)

	default:
		// Unknown node types still render their content
		debugLog("unknown node type %q", node.Type)
		return c.joinChildren(ctx, node)
	}
}

// joinChildren concatenates the children of node rendered at indent 0
func (c *Converter) joinChildren(ctx context.Context, node *Node) (string, error) {
	parts, err := c.convertChildren(ctx, node.Children, 0)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

// convertChildren renders children concurrently; parts keep the input order
func (c *Converter) convertChildren(ctx context.Context, children []*Node, indent int) ([]string, error) {
	parts := make([]string, len(children))
	if len(children) == 0 {
		return parts, nil
	}
	if len(children) == 1 || c.concurrency == 1 {
		for i, child := range children {
			out, err := c.Convert(ctx, child, indent)
			if err != nil {
				return nil, err
			}
			parts[i] = out
		}
		return parts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, child := range children {
		g.Go(func() error {
			out, err := c.Convert(gctx, child, indent)
			if err != nil {
				return err
			}
			parts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (c *Converter) convertList(ctx context.Context, node *Node, indent int) (string, error) {
	if len(node.Children) == 0 {
		return "", nil
	}

	ordered := node.Tag == "ol" || node.ListType == "number"
	items, err := c.convertChildren(ctx, node.Children, indent)
	if err != nil {
		return "", err
	}

	pad := strings.Repeat("  ", indent)
	for i, item := range items {
		prefix := "- "
		if ordered {
			prefix = strconv.Itoa(i+1) + ". "
		}
		items[i] = pad + prefix + item
	}
	return strings.Join(items, "\n"), nil
}

func (c *Converter) convertListItem(ctx context.Context, node *Node, indent int) (string, error) {
	nested := false
	for _, child := range node.Children {
		if child != nil && child.Type == KindList {
			nested = true
			break
		}
	}
	if !nested {
		return c.joinChildren(ctx, node)
	}

	var b strings.Builder
	for _, child := range node.Children {
		if child != nil && child.Type == KindList {
			out, err := c.Convert(ctx, child, indent+1)
			if err != nil {
				return "", err
			}
			b.WriteString("\n")
			b.WriteString(out)
			continue
		}
		out, err := c.Convert(ctx, child, 0)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (c *Converter) convertUpload(ctx context.Context, node *Node) string {
	if node.Value == nil || node.Value.URL == "" || c.images == nil {
		return ""
	}

	filename, ok := c.images.Resolve(ctx, node.Value.URL)
	if !ok {
		return ""
	}

	return fmt.Sprintf("![%s](%s)", node.Value.Alt, c.linkPrefix(filename))
}

func (c *Converter) convertBlock(node *Node) (string, error) {
	if node.Fields == nil {
		return "", nil
	}

	switch node.Fields.BlockType {
	case "code":
		code := strings.ReplaceAll(node.Fields.Code, "\r\n", "\n")
		code = strings.ReplaceAll(code, "\r", "\n")
		return fmt.Sprintf("```%s\n%s\n```", node.Fields.Language, code), nil
	case "html":
		out, err := c.html.ConvertString(node.Fields.HTML)
		if err != nil {
			return "", fmt.Errorf("converting html block: %w", err)
		}
		return out, nil
	default:
		return "", nil
	}
}

// headingLevel parses the level from tags like "h3". Levels outside
// 1-6 fall back to the default.
func headingLevel(tag string) int {
	if len(tag) < 2 {
		return defaultHeadingLevel
	}
	level, err := strconv.Atoi(tag[1:])
	if err != nil || level < 1 || level > maxHeadingLevel {
		return defaultHeadingLevel
	}
	return level
}

// formatText applies the format bitmask. Code suppresses bold and italic;
// strikethrough wraps whatever the other flags produced.
func formatText(text string, format TextFormat) string {
	if text == "" {
		return ""
	}

	result := text
	switch {
	case format.Has(FormatCode):
		result = "`" + result + "`"
	case format.Has(FormatBold | FormatItalic):
		result = "***" + result + "***"
	case format.Has(FormatBold):
		result = "**" + result + "**"
	case format.Has(FormatItalic):
		result = "*" + result + "*"
	}

	if format.Has(FormatStrikethrough) {
		result = "~~" + result + "~~"
	}

	return result
}
