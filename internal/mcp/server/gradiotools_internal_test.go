package server

import (
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
)

// TestToContentBlocks_RoundTripsTextAndImage verifies the content-block
// projection preserves text and image kinds before filtering runs.
func TestToContentBlocks_RoundTripsTextAndImage(t *testing.T) {
	t.Parallel()
	content := []mcpsdk.Content{
		&mcpsdk.TextContent{Text: "hello"},
		&mcpsdk.ImageContent{Data: "base64data"},
	}

	blocks := toContentBlocks(content)
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "hello" {
		t.Errorf("blocks[0] = %+v, want text %q", blocks[0], "hello")
	}
	if blocks[1].Type != "image" {
		t.Errorf("blocks[1].Type = %q, want image", blocks[1].Type)
	}
}

// TestFromContentBlocks_WrapsAsTextContent verifies text blocks are wrapped
// as TextContent.
func TestFromContentBlocks_WrapsAsTextContent(t *testing.T) {
	t.Parallel()
	blocks := []gradio.ContentBlock{{Type: "text", Text: "a"}, {Type: "text", Text: "b"}}

	content := fromContentBlocks(blocks)
	if len(content) != 2 {
		t.Fatalf("len(content) = %d, want 2", len(content))
	}
	for i, c := range content {
		tc, ok := c.(*mcpsdk.TextContent)
		if !ok {
			t.Fatalf("content[%d] = %T, want *mcpsdk.TextContent", i, c)
		}
		if tc.Text != blocks[i].Text {
			t.Errorf("content[%d].Text = %q, want %q", i, tc.Text, blocks[i].Text)
		}
	}
}

// TestFromContentBlocks_PreservesImage verifies an image block that survived
// filtering round-trips back to ImageContent instead of being flattened to
// text.
func TestFromContentBlocks_PreservesImage(t *testing.T) {
	t.Parallel()
	content := fromContentBlocks([]gradio.ContentBlock{{Type: "image", Data: "base64data"}})
	if len(content) != 1 {
		t.Fatalf("len(content) = %d, want 1", len(content))
	}
	ic, ok := content[0].(*mcpsdk.ImageContent)
	if !ok {
		t.Fatalf("content[0] = %T, want *mcpsdk.ImageContent", content[0])
	}
	if ic.Data != "base64data" {
		t.Errorf("ic.Data = %q, want %q", ic.Data, "base64data")
	}
}

// TestProgressTokenOf_NilSafety verifies a request with no params/meta
// reports no progress token rather than panicking.
func TestProgressTokenOf_NilSafety(t *testing.T) {
	t.Parallel()
	if got := progressTokenOf(nil); got != nil {
		t.Fatalf("progressTokenOf(nil) = %v, want nil", got)
	}
	if got := progressTokenOf(&mcpsdk.CallToolRequest{}); got != nil {
		t.Fatalf("progressTokenOf(empty request) = %v, want nil", got)
	}
}

// TestProgressTokenOf_ReadsMeta verifies the caller's progress token is read
// from _meta.progressToken (§4.4.5 item 3).
func TestProgressTokenOf_ReadsMeta(t *testing.T) {
	t.Parallel()
	req := &mcpsdk.CallToolRequest{
		Params: &mcpsdk.CallToolParams{Meta: mcpsdk.Meta{"progressToken": "tok-1"}},
	}
	if got := progressTokenOf(req); got != "tok-1" {
		t.Fatalf("progressTokenOf = %v, want %q", got, "tok-1")
	}
}

// TestRegisterGradioTools_SkipsFailedSpaces verifies a space record with a
// non-nil Err never gets its tools registered.
func TestRegisterGradioTools_SkipsFailedSpaces(t *testing.T) {
	t.Parallel()
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test", Version: "0.0.0"}, nil)

	records := []gradio.SpaceRecord{
		{Err: errors.New("schema fetch failed")},
	}

	// Registration must not panic even though the only record errored.
	registerGradioTools(srv, records, false, "")
}
