package citizens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// SQLiteRepository implements Repository for SQLite.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Citizen) error {
	query := `INSERT INTO citizens (nid, name, dob, gender, address, father_name, mother_name, blood_group, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.NID, c.Name, c.DOB, c.Gender, c.Address, c.FatherName, c.MotherName, c.BloodGroup,
		c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("failed to insert citizen: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, nid string) (*models.Citizen, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM citizens WHERE nid = ?`, nid)
	c, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get citizen: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, c *models.Citizen) error {
	query := `UPDATE citizens SET name = ?, dob = ?, gender = ?, address = ?, father_name = ?,
		mother_name = ?, blood_group = ?, updated_at = ?
		WHERE nid = ?`
	res, err := r.db.ExecContext(ctx, query,
		c.Name, c.DOB, c.Gender, c.Address, c.FatherName, c.MotherName, c.BloodGroup,
		c.UpdatedAt.Unix(), c.NID)
	if err != nil {
		return fmt.Errorf("failed to update citizen: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, nid string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM citizens WHERE nid = ?`, nid)
	if err != nil {
		return fmt.Errorf("failed to delete citizen: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Citizen, error) {
	return list(ctx, r.db, `SELECT `+selectColumns+` FROM citizens ORDER BY nid`)
}

func (r *SQLiteRepository) Exists(ctx context.Context, nid string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM citizens WHERE nid = ?)`, nid).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check citizen: %w", err)
	}
	return ok, nil
}

func list(ctx context.Context, db dbx.DBTX, query string) ([]models.Citizen, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list citizens: %w", err)
	}
	defer rows.Close()

	var result []models.Citizen
	for rows.Next() {
		c, err := scanCitizen(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan citizen: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate citizens: %w", err)
	}
	return result, nil
}

func expectOneRow(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
