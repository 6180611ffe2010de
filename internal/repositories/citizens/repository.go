// Package citizens persists civil-registry records keyed by NID.
package citizens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// Repository is the record store used by the session layer.
type Repository interface {
	// Create inserts c. A taken NID yields common.ErrConflict.
	Create(ctx context.Context, c *models.Citizen) error
	// GetByID returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, nid string) (*models.Citizen, error)
	// Update overwrites every mutable field of c.NID. Returns
	// common.ErrorNotFound when no row matched.
	Update(ctx context.Context, c *models.Citizen) error
	// Delete removes the row. Returns common.ErrorNotFound when no row matched.
	Delete(ctx context.Context, nid string) error
	List(ctx context.Context) ([]models.Citizen, error)
	Exists(ctx context.Context, nid string) (bool, error)
}

const selectColumns = `nid, name, dob, gender, address, father_name, mother_name, blood_group, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCitizen(row rowScanner) (*models.Citizen, error) {
	var (
		c                    models.Citizen
		createdAt, updatedAt int64
	)
	err := row.Scan(&c.NID, &c.Name, &c.DOB, &c.Gender, &c.Address,
		&c.FatherName, &c.MotherName, &c.BloodGroup, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}
