package services

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
)

const maxPerPage = 100

// CaseFilter describes an optional-field search over stored reports. Filters
// combine with AND; the free-text search matches case-insensitively against
// name, last seen location, and description with OR across the three.
type CaseFilter struct {
	Status  string // empty defaults to "missing"; "all" disables the filter
	Search  string
	Gender  string
	Page    int
	PerPage int
}

// CasePage is one page of filtered results.
type CasePage struct {
	Items       []models.MissingPerson
	Total       int64
	Pages       int
	CurrentPage int
}

// CaseQueryService is the read-only search path. The filter SQL is built
// with squirrel over the raw connection; matched rows are hydrated through
// the repository so the wire shape stays identical to single-report reads.
type CaseQueryService struct {
	db             *sql.DB
	cases          repository.CaseRepository
	defaultPerPage int
}

func NewCaseQueryService(db *sql.DB, cases repository.CaseRepository, defaultPerPage int) *CaseQueryService {
	if defaultPerPage <= 0 {
		defaultPerPage = 20
	}
	return &CaseQueryService{db: db, cases: cases, defaultPerPage: defaultPerPage}
}

func (s *CaseQueryService) List(filter CaseFilter) (*CasePage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = s.defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	conds := buildConditions(filter)

	countQuery := sq.Select("COUNT(*)").From("missing_persons")
	for _, c := range conds {
		countQuery = countQuery.Where(c)
	}
	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := s.db.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count missing persons: %w", err)
	}

	listQuery := sq.Select("id").From("missing_persons").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage))
	for _, c := range conds {
		listQuery = listQuery.Where(c)
	}
	listSQL, listArgs, err := listQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := s.db.Query(listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing persons: %w", err)
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan missing person id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate missing person ids: %w", err)
	}

	items, err := s.cases.GetByIDs(ids)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &CasePage{
		Items:       items,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}, nil
}

func buildConditions(filter CaseFilter) []sq.Sqlizer {
	var conds []sq.Sqlizer

	status := filter.Status
	if status == "" {
		status = models.StatusMissing
	}
	if status != "all" {
		conds = append(conds, sq.Eq{"status": status})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		conds = append(conds, sq.Or{
			sq.Like{"LOWER(full_name)": like},
			sq.Like{"LOWER(last_seen_location)": like},
			sq.Like{"LOWER(description)": like},
		})
	}

	if filter.Gender != "" {
		conds = append(conds, sq.Eq{"gender": filter.Gender})
	}

	return conds
}
