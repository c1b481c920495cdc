package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
)

type Category struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Color          string    `json:"color"`
	Icon           string    `json:"icon"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c *Category) IsActiveCategory() bool {
	return c.IsActive
}

func (c *Category) Activate() {
	c.IsActive = true
	c.UpdatedAt = time.Now()
}

func (c *Category) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

func NewCategory(orgID, name, description, color, icon string) *Category {
	now := time.Now()
	return &Category{
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Color:          color,
		Icon:           icon,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

type seed struct {
	name, description, color, icon string
}

var defaults = []seed{
	{"Travel", "Flights, lodging and ground transport", "#3B82F6", "plane"},
	{"Meals", "Meals and entertainment", "#F59E0B", "utensils"},
	{"Office Supplies", "Stationery and small equipment", "#10B981", "paperclip"},
	{"Software", "Subscriptions and licenses", "#8B5CF6", "laptop"},
	{"Other", "Anything that fits nowhere else", "#6B7280", "tag"},
}

// Defaults returns the categories every new organization starts with.
func Defaults(orgID string) []*categoryDatamodel.ExpenseCategory {
	out := make([]*categoryDatamodel.ExpenseCategory, 0, len(defaults))
	for _, d := range defaults {
		out = append(out, ToDataModel(NewCategory(orgID, d.name, d.description, d.color, d.icon)))
	}
	return out
}

func ToDataModel(c *Category) *categoryDatamodel.ExpenseCategory {
	return &categoryDatamodel.ExpenseCategory{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Description:    c.Description,
		Color:          c.Color,
		Icon:           c.Icon,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.ExpenseCategory) *Category {
	return &Category{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Description:    c.Description,
		Color:          c.Color,
		Icon:           c.Icon,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
