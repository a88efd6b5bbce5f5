package store

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/errs"
)

// tableStore exposes the generic query/filter/order/limit surface the tool
// executor works against. Collections map one-to-one to the catalog's table
// names; the executor owns the allow-list check, this layer trusts its caller.
type tableStore struct {
	client *firestore.Client
}

func NewTableStore(client *firestore.Client) *tableStore {
	return &tableStore{client: client}
}

// operatorAliases translates the wire operators the model emits into
// firestore comparators. Anything unlisted travels verbatim so the store
// itself decides what is legal.
var operatorAliases = map[string]string{
	"eq":  "==",
	"neq": "!=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

func storeOperator(op string) string {
	if mapped, ok := operatorAliases[op]; ok {
		return mapped
	}
	return op
}

func (s *tableStore) applyFilters(q firestore.Query, filters []dto.Filter) firestore.Query {
	for _, f := range filters {
		q = q.Where(f.Column, storeOperator(f.Operator), f.Value)
	}
	return q
}

func (s *tableStore) Query(ctx context.Context, spec dto.QuerySpec) ([]map[string]any, error) {
	q := s.client.Collection(spec.TableName).Query
	if len(spec.Select) > 0 {
		q = q.Select(spec.Select...)
	}
	q = s.applyFilters(q, spec.Filters)
	if spec.OrderBy != "" {
		dir := firestore.Asc
		if spec.Ascending != nil && !*spec.Ascending {
			dir = firestore.Desc
		}
		q = q.OrderBy(spec.OrderBy, dir)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to query "+spec.TableName, err)
	}

	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		row := doc.Data()
		if _, ok := row["id"]; !ok {
			row["id"] = doc.Ref.ID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GroupedCount tallies rows per distinct groupBy value. Firestore has no
// grouped aggregation through this query surface, so the tally happens while
// streaming the projected column.
func (s *tableStore) GroupedCount(ctx context.Context, table, groupBy string, filters []dto.Filter) ([]map[string]any, error) {
	q := s.applyFilters(s.client.Collection(table).Query, filters)
	if groupBy != "" {
		q = q.Select(groupBy)
	}

	counts := map[string]int{}
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to count "+table, err)
		}
		key := ""
		if groupBy != "" {
			if v, ok := doc.Data()[groupBy]; ok {
				key = toKey(v)
			}
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		row := map[string]any{"count": counts[key]}
		if groupBy != "" {
			row[groupBy] = key
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *tableStore) Update(ctx context.Context, table string, filters []dto.Filter, updates map[string]any) (int, []map[string]any, error) {
	q := s.applyFilters(s.client.Collection(table).Query, filters)
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return 0, nil, errs.NewDatabaseError("read", "failed to select rows for update in "+table, err)
	}

	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if _, err := doc.Ref.Set(ctx, updates, firestore.MergeAll); err != nil {
			return len(rows), rows, errs.NewDatabaseError("update", "failed to update "+table, err)
		}
		row := doc.Data()
		for column, value := range updates {
			row[column] = value
		}
		if _, ok := row["id"]; !ok {
			row["id"] = doc.Ref.ID
		}
		rows = append(rows, row)
	}
	return len(rows), rows, nil
}

func (s *tableStore) Insert(ctx context.Context, table string, values map[string]any) (map[string]any, error) {
	ref, _, err := s.client.Collection(table).Add(ctx, values)
	if err != nil {
		return nil, errs.NewDatabaseError("create", "failed to insert into "+table, err)
	}
	row := make(map[string]any, len(values)+1)
	for column, value := range values {
		row[column] = value
	}
	row["id"] = ref.ID
	return row, nil
}
