package organization

import (
	"time"

	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func FromDataModel(o *orgDatamodel.Organization) *Organization {
	if o == nil {
		return nil
	}
	return &Organization{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		CreatedAt: o.CreatedAt,
	}
}
