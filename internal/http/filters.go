package httpserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
)

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}

func queryString(query url.Values, key string) *string {
	if !query.Has(key) {
		return nil
	}
	val := query.Get(key)
	return normalizeStringPtr(&val)
}

func parsePaging(query url.Values) (int, *repository.Cursor, error) {
	var limit int
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, nil, fmt.Errorf("invalid limit parameter")
		}
		limit = v
	}
	cursor, err := repository.DecodeCursor(strings.TrimSpace(query.Get("cursor")))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid cursor parameter")
	}
	return limit, cursor, nil
}

func buildUserFilters(query url.Values) (repository.UserListFilters, error) {
	filters := repository.UserListFilters{
		Name:    queryString(query, "name"),
		Email:   queryString(query, "email"),
		Address: queryString(query, "address"),
	}
	if raw := queryString(query, "role"); raw != nil {
		role := domain.Role(strings.ToUpper(*raw))
		if !role.Valid() {
			return repository.UserListFilters{}, fmt.Errorf("invalid role parameter")
		}
		filters.Role = &role
	}

	limit, cursor, err := parsePaging(query)
	if err != nil {
		return repository.UserListFilters{}, err
	}
	filters.Limit = limit
	filters.Cursor = cursor
	return filters, nil
}

func buildStoreFilters(query url.Values) (repository.StoreListFilters, error) {
	filters := repository.StoreListFilters{
		Name:    queryString(query, "name"),
		Address: queryString(query, "address"),
	}
	limit, cursor, err := parsePaging(query)
	if err != nil {
		return repository.StoreListFilters{}, err
	}
	filters.Limit = limit
	filters.Cursor = cursor
	return filters, nil
}
