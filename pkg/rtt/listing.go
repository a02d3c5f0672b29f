package rtt

import (
	"bytes"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// ParseListing extracts the service detail paths from a detailed search
// results page, in page order.
func ParseListing(document []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, err
	}

	var servicePaths []string
	walkNodes(root, func(node *html.Node) bool {
		if node.Data == "a" && nodeHasClass(node, "service") {
			if href := nodeAttribute(node, "href"); href != "" {
				servicePaths = append(servicePaths, href)
			}
		}
		return true
	})

	log.Debug().Int("services", len(servicePaths)).Msg("Parsed search results page")

	return servicePaths, nil
}
