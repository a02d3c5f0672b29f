package rtt

import (
	"strings"

	"golang.org/x/net/html"
)

func nodeAttribute(node *html.Node, key string) string {
	for _, attribute := range node.Attr {
		if attribute.Key == key {
			return attribute.Val
		}
	}

	return ""
}

func nodeHasClass(node *html.Node, class string) bool {
	if node.Type != html.ElementNode {
		return false
	}

	for _, candidate := range strings.Fields(nodeAttribute(node, "class")) {
		if candidate == class {
			return true
		}
	}

	return false
}

func nodeText(node *html.Node) string {
	var builder strings.Builder

	var collect func(*html.Node)
	collect = func(current *html.Node) {
		if current.Type == html.TextNode {
			builder.WriteString(current.Data)
		}
		for child := current.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)

	return strings.TrimSpace(builder.String())
}

// walkNodes calls visit for every element node in document order. Returning
// false stops descent into that node's children.
func walkNodes(root *html.Node, visit func(*html.Node) bool) {
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && !visit(node) {
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
}

func findNode(root *html.Node, predicate func(*html.Node) bool) *html.Node {
	var found *html.Node
	walkNodes(root, func(node *html.Node) bool {
		if found == nil && predicate(node) {
			found = node
			return false
		}
		return found == nil
	})

	return found
}
