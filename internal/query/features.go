// Package query turns raw query-string parameters into a bounded mongo query.
// The four stages run in a fixed order (filter, sort, select, paginate) but
// each one is a pure function that can be applied on its own.
package query

import (
	"context"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/tours-service/internal/apperror"
)

const (
	DefaultLimit = 100
	defaultSort  = "createdAt"
	versionField = "__v"
)

// Reserved parameters control the pipeline itself and never become filters.
var reserved = map[string]bool{
	"page":   true,
	"limit":  true,
	"sort":   true,
	"fields": true,
}

// Only these comparison operators may reach the store. Anything else in a
// bracket suffix is rejected so clients cannot smuggle arbitrary operators.
var allowedOps = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

// CountFunc reports the total number of documents in the target collection.
type CountFunc func(ctx context.Context) (int64, error)

// Filter translates the non-reserved parameters into a conjunction of
// equality and range constraints. A key of the form "price[lt]" becomes a
// $lt constraint on "price"; a plain key is an equality match.
func Filter(params map[string]string) (bson.M, error) {
	filter := bson.M{}
	for key, raw := range params {
		if reserved[key] {
			continue
		}
		field, op, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		value := parseValue(raw)
		if op == "" {
			// A plain key is an equality match, folded into the field's
			// operator map when range constraints are also present so both
			// survive as a conjunction.
			if rng, ok := filter[field].(bson.M); ok {
				rng["$eq"] = value
			} else {
				filter[field] = value
			}
			continue
		}
		switch existing := filter[field].(type) {
		case bson.M:
			existing[op] = value
		case nil:
			filter[field] = bson.M{op: value}
		default:
			filter[field] = bson.M{"$eq": existing, op: value}
		}
	}
	return filter, nil
}

// Sort parses the "sort" parameter into an ordered multi-key sort document.
// A leading '-' means descending. Defaults to newest-first.
func Sort(params map[string]string) (bson.D, error) {
	expr, ok := params["sort"]
	if !ok || expr == "" {
		return bson.D{{Key: defaultSort, Value: -1}}, nil
	}
	var sort bson.D
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if err := validateField(part); err != nil {
			return nil, err
		}
		sort = append(sort, bson.E{Key: part, Value: dir})
	}
	return sort, nil
}

// Select parses the "fields" parameter into a projection. When present the
// projection includes exactly the named fields (the id is always kept by
// the store); when absent everything but the internal version marker is
// returned.
func Select(params map[string]string) (bson.D, error) {
	expr, ok := params["fields"]
	if !ok || expr == "" {
		return bson.D{{Key: versionField, Value: 0}}, nil
	}
	var projection bson.D
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if err := validateField(part); err != nil {
			return nil, err
		}
		projection = append(projection, bson.E{Key: part, Value: 1})
	}
	return projection, nil
}

// Paginate resolves "page" and "limit" into a skip/limit window. When the
// page was explicitly requested and its offset is at or past the end of the
// collection (per count), it fails instead of returning a silent empty page.
func Paginate(ctx context.Context, params map[string]string, count CountFunc) (skip, limit int64, err error) {
	page := int64(1)
	limit = DefaultLimit

	pageRaw, pageSet := params["page"]
	if pageSet {
		page, err = strconv.ParseInt(pageRaw, 10, 64)
		if err != nil || page < 1 {
			return 0, 0, apperror.BadRequest("invalid page %q", pageRaw)
		}
	}
	if limitRaw, ok := params["limit"]; ok {
		limit, err = strconv.ParseInt(limitRaw, 10, 64)
		if err != nil || limit < 1 {
			return 0, 0, apperror.BadRequest("invalid limit %q", limitRaw)
		}
	}

	skip = (page - 1) * limit
	if pageSet {
		total, err := count(ctx)
		if err != nil {
			return 0, 0, err
		}
		if skip >= total {
			return 0, 0, apperror.NotFound("this page does not exist")
		}
	}
	return skip, limit, nil
}

// Build runs the full pipeline and returns the filter plus find options ready
// to hand to the store.
func Build(ctx context.Context, params map[string]string, count CountFunc) (bson.M, *options.FindOptions, error) {
	filter, err := Filter(params)
	if err != nil {
		return nil, nil, err
	}
	sort, err := Sort(params)
	if err != nil {
		return nil, nil, err
	}
	projection, err := Select(params)
	if err != nil {
		return nil, nil, err
	}
	skip, limit, err := Paginate(ctx, params, count)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find().
		SetSort(sort).
		SetProjection(projection).
		SetSkip(skip).
		SetLimit(limit)
	return filter, opts, nil
}

// splitKey separates "price[lt]" into ("price", "$lt"). A key without a
// bracket suffix yields an empty operator.
func splitKey(key string) (field, op string, err error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if err := validateField(key); err != nil {
			return "", "", err
		}
		return key, "", nil
	}
	if !strings.HasSuffix(key, "]") {
		return "", "", apperror.BadRequest("malformed filter key %q", key)
	}
	field = key[:open]
	suffix := key[open+1 : len(key)-1]
	mongoOp, ok := allowedOps[suffix]
	if !ok {
		return "", "", apperror.BadRequest("unsupported filter operator %q", suffix)
	}
	if err := validateField(field); err != nil {
		return "", "", err
	}
	return field, mongoOp, nil
}

// validateField blocks store operator injection through field names.
func validateField(name string) error {
	if name == "" {
		return apperror.BadRequest("empty field name")
	}
	if strings.ContainsAny(name, "$.") {
		return apperror.BadRequest("invalid field name %q", name)
	}
	return nil
}

// parseValue gives numeric and boolean literals their natural store type so
// range comparisons behave numerically.
func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
