package view

import (
	"errors"

	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// ImageSize is the edge length of cart item thumbnails.
const ImageSize = 50

// ImageResolver turns an image reference into a URL of the given size.
type ImageResolver interface {
	URL(ref string, width, height int) (string, error)
}

// Passthrough resolves only references that already are URLs.
type Passthrough struct{}

func (Passthrough) URL(ref string, _, _ int) (string, error) {
	if ref == "" {
		return "", errors.New("empty image reference")
	}
	return ref, nil
}

// Option is one entry of a select box.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

var filterOptions = []Option{
	{Value: string(dashboard.FilterAll), Label: "All Status"},
	{Value: string(orders.StatusPending), Label: "Pending"},
	{Value: string(orders.StatusDispatch), Label: "Dispatch"},
	{Value: string(orders.StatusSuccess), Label: "Completed"},
}

// Item is a cart line item in the detail panel. ImageURL is empty when the
// item has no usable image.
type Item struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Detail is the expanded panel below a row.
type Detail struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Items   []Item `json:"items"`
}

// Row is one order line of the table.
type Row struct {
	ID            string   `json:"id"`
	ShortID       string   `json:"short_id"`
	Customer      string   `json:"customer"`
	Total         string   `json:"total"`
	Date          string   `json:"date"`
	StatusLabel   string   `json:"status_label"`
	BadgeClass    string   `json:"badge_class"`
	StatusOptions []Option `json:"status_options"`
	Detail        *Detail  `json:"detail,omitempty"`
}

// Page is everything the dashboard template renders.
type Page struct {
	Search        string                  `json:"search"`
	Filter        string                  `json:"filter"`
	FilterOptions []Option                `json:"filter_options"`
	Rows          []Row                   `json:"rows"`
	Empty         bool                    `json:"empty"`
	Notification  *dashboard.Notification `json:"notification,omitempty"`
}

// Builder derives view models from dashboard state.
type Builder struct {
	images ImageResolver
}

func NewBuilder(images ImageResolver) *Builder {
	return &Builder{images: images}
}

// Page builds the view of st's visible orders.
func (b *Builder) Page(st *dashboard.State, loc Locale) Page {
	visible := dashboard.Visible(st)
	p := Page{
		Search:        st.Search,
		Filter:        string(st.Filter),
		FilterOptions: selectOptions(filterOptions, string(st.Filter)),
		Rows:          make([]Row, 0, len(visible)),
		Empty:         len(visible) == 0,
	}
	for _, o := range visible {
		p.Rows = append(p.Rows, b.row(o, o.ID == st.ExpandedID, loc))
	}
	return p
}

func (b *Builder) row(o orders.Order, expanded bool, loc Locale) Row {
	status := ""
	if o.Status != nil {
		status = string(*o.Status)
	}
	r := Row{
		ID:            o.ID,
		ShortID:       ShortID(o.ID),
		Customer:      o.FirstName + " " + o.LastName,
		Total:         "$" + o.Total.StringFixed(2),
		Date:          loc.FormatDate(o.OrderDate),
		StatusLabel:   StatusLabel(o.Status),
		BadgeClass:    BadgeClass(o.Status),
		StatusOptions: selectOptions(filterOptions[1:], status),
	}
	if expanded {
		r.Detail = b.detail(o)
	}
	return r
}

func (b *Builder) detail(o orders.Order) *Detail {
	d := &Detail{
		Phone:   o.Phone,
		Email:   o.Email,
		Address: o.Address + ", " + o.City + " " + o.ZipCode,
		Items:   make([]Item, 0, len(o.CartItems)),
	}
	for _, ci := range o.CartItems {
		item := Item{Name: ci.ProductName}
		if ci.Image != "" {
			if u, err := b.images.URL(string(ci.Image), ImageSize, ImageSize); err == nil {
				item.ImageURL = u
			}
		}
		d.Items = append(d.Items, item)
	}
	return d
}

func selectOptions(opts []Option, selected string) []Option {
	out := make([]Option, len(opts))
	for i, o := range opts {
		o.Selected = o.Value == selected
		out[i] = o
	}
	return out
}

// ShortID returns the last six characters of id, or id when shorter.
func ShortID(id string) string {
	r := []rune(id)
	if len(r) <= 6 {
		return id
	}
	return string(r[len(r)-6:])
}

// StatusLabel is the badge text: the raw status, or N/A when unset.
func StatusLabel(s *orders.Status) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return string(*s)
}

// BadgeClass maps a status to its badge colors. Unknown and unset
// statuses are gray.
func BadgeClass(s *orders.Status) string {
	if s == nil {
		return "bg-gray-100 text-gray-800"
	}
	switch *s {
	case orders.StatusPending:
		return "bg-yellow-100 text-yellow-800"
	case orders.StatusDispatch:
		return "bg-blue-100 text-blue-600"
	case orders.StatusSuccess:
		return "bg-green-100 text-green-800"
	default:
		return "bg-gray-100 text-gray-800"
	}
}
