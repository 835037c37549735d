package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
	"github.com/imrishuroy/go-order-dashboard/internal/sanity"
)

func TestRenderTable(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	st := testState()
	st.ExpandedID = "order-7f3a9c"
	page := NewBuilder(sanity.NewImageURLBuilder("proj1", "production")).Page(st, DefaultLocale)

	out, err := RenderTable(tmpl, page)
	require.NoError(t, err)
	assert.Contains(t, out, `data-id="order-7f3a9c"`)
	assert.Contains(t, out, "7f3a9c")
	assert.Contains(t, out, "$120.50")
	assert.Contains(t, out, `<option value="dispatch" selected>Dispatch</option>`)
	assert.Contains(t, out, "Customer Details")
	assert.Contains(t, out, "1 Main St, Springfield 12345")
	assert.Contains(t, out, `width="50" height="50"`)
	assert.Equal(t, 1, strings.Count(out, "Customer Details"))
	assert.NotContains(t, out, "No orders found")
}

func TestRenderTable_Empty(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	st := testState()
	st.Search = "nobody"
	out, err := RenderTable(tmpl, NewBuilder(Passthrough{}).Page(st, DefaultLocale))
	require.NoError(t, err)
	assert.Contains(t, out, "No orders found")
	assert.NotContains(t, out, "data-id=")
}

func TestRenderPage_EmbedsNotification(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	page := NewBuilder(Passthrough{}).Page(testState(), DefaultLocale)
	page.Notification = &dashboard.Notification{
		Kind:  dashboard.KindModal,
		Level: dashboard.LevelError,
		Title: "Error",
		Text:  "Failed to fetch orders: boom",
	}

	var sb strings.Builder
	require.NoError(t, tmpl.ExecuteTemplate(&sb, PageTemplate, page))
	out := sb.String()
	assert.Contains(t, out, "Order Management")
	assert.Contains(t, out, `<option value="All" selected>All Status</option>`)
	assert.Contains(t, out, "Failed to fetch orders: boom")
}
