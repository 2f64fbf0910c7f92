package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carelog/patient-records-api/database"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

var _ storage.AnalyticsStore = (*AnalyticsStore)(nil)

// yearMillis is a fixed 365-day year. Ages computed with it drift slightly
// around leap days, but exact-birthday boundaries land in the expected bucket.
const yearMillis = 365 * 24 * 60 * 60 * 1000

// ageBoundaries are the closed-open bucket bounds; everything at or above the
// last boundary collapses into the open-ended overflow bucket.
var ageBoundaries = []int{0, 18, 30, 50, 65}

var ageLabels = map[int]string{
	0:  "0-17",
	18: "18-29",
	30: "30-49",
	50: "50-64",
}

const ageOverflowLabel = "65+"

// timeSeriesDays is the window of the patients-over-time report.
const timeSeriesDays = 7

// AnalyticsStore runs aggregation pipelines over the patients collection.
// Every report is read-only.
type AnalyticsStore struct {
	patients *mongo.Collection
	now      func() time.Time
}

func NewAnalyticsStore(db *mongo.Database) *AnalyticsStore {
	return &AnalyticsStore{
		patients: db.Collection(database.CollPatients),
		now:      time.Now,
	}
}

// Dashboard returns the flat counts backing the dashboard cards. The 30-day
// window is inclusive of its lower bound.
func (s *AnalyticsStore) Dashboard(ctx context.Context) (storage.DashboardStats, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	total, err := s.patients.CountDocuments(ctx, bson.M{})
	if err != nil {
		return storage.DashboardStats{}, err
	}
	thirtyDaysAgo := s.now().UTC().AddDate(0, 0, -30)
	recent, err := s.patients.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": thirtyDaysAgo}})
	if err != nil {
		return storage.DashboardStats{}, err
	}
	active, err := s.patients.CountDocuments(ctx, bson.M{"status": models.StatusActive})
	if err != nil {
		return storage.DashboardStats{}, err
	}
	critical, err := s.patients.CountDocuments(ctx, bson.M{"status": models.StatusCritical})
	if err != nil {
		return storage.DashboardStats{}, err
	}

	return storage.DashboardStats{
		TotalPatients:    total,
		NewPatients:      recent,
		ActivePatients:   active,
		CriticalPatients: critical,
	}, nil
}

// GenderDistribution groups patients by gender. A missing or empty gender is
// its own group, labeled "unknown".
func (s *AnalyticsStore) GenderDistribution(ctx context.Context) ([]storage.NameValue, error) {
	var rows []struct {
		Gender *string `bson:"_id"`
		Value  int64   `bson:"value"`
	}
	if err := s.aggregate(ctx, genderPipeline(), &rows); err != nil {
		return nil, err
	}

	out := make([]storage.NameValue, 0, len(rows))
	for _, row := range rows {
		name := "unknown"
		if row.Gender != nil && *row.Gender != "" {
			name = *row.Gender
		}
		out = append(out, storage.NameValue{Name: name, Value: row.Value})
	}
	return out, nil
}

// AgeDistribution buckets whole-year ages into the fixed bins.
func (s *AnalyticsStore) AgeDistribution(ctx context.Context) ([]storage.NameValue, error) {
	var rows []struct {
		Bucket any   `bson:"_id"`
		Value  int64 `bson:"value"`
	}
	if err := s.aggregate(ctx, agePipeline(s.now().UTC()), &rows); err != nil {
		return nil, err
	}

	out := make([]storage.NameValue, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.NameValue{Name: bucketLabel(row.Bucket), Value: row.Value})
	}
	return out, nil
}

// DiseaseDistribution flattens medical-history tags and returns the ten most
// common, ties broken by tag name ascending.
func (s *AnalyticsStore) DiseaseDistribution(ctx context.Context) ([]storage.NameValue, error) {
	var rows []struct {
		Tag   string `bson:"_id"`
		Value int64  `bson:"value"`
	}
	if err := s.aggregate(ctx, diseasePipeline(), &rows); err != nil {
		return nil, err
	}

	out := make([]storage.NameValue, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.NameValue{Name: row.Tag, Value: row.Value})
	}
	return out, nil
}

// PatientsOverTime counts records created per UTC calendar day over the
// trailing week. Days without records are zero-filled.
func (s *AnalyticsStore) PatientsOverTime(ctx context.Context) ([]storage.NameValue, error) {
	now := s.now().UTC()
	from := startOfDayUTC(now.AddDate(0, 0, -(timeSeriesDays - 1)))

	var rows []struct {
		Day   string `bson:"_id"`
		Value int64  `bson:"value"`
	}
	if err := s.aggregate(ctx, timeSeriesPipeline(from), &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Day] = row.Value
	}
	return zeroFillDays(counts, now, timeSeriesDays), nil
}

func (s *AnalyticsStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.patients.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func genderPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$gender", "value": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func agePipeline(now time.Time) mongo.Pipeline {
	boundaries := bson.A{}
	for _, b := range ageBoundaries {
		boundaries = append(boundaries, b)
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"dateOfBirth": bson.M{"$type": "date"}}}},
		{{Key: "$addFields", Value: bson.M{"age": bson.M{"$floor": bson.M{"$divide": bson.A{
			bson.M{"$subtract": bson.A{primitive.NewDateTimeFromTime(now), "$dateOfBirth"}},
			yearMillis,
		}}}}}},
		{{Key: "$bucket", Value: bson.M{
			"groupBy":    "$age",
			"boundaries": boundaries,
			"default":    ageOverflowLabel,
			"output":     bson.M{"value": bson.M{"$sum": 1}},
		}}},
	}
}

func diseasePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$medicalHistory"}},
		{{Key: "$group", Value: bson.M{"_id": "$medicalHistory", "value": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "value", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: 10}},
	}
}

func timeSeriesPipeline(from time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": from}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"value": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// ageBucket classifies a whole-year age the same way the $bucket stage does.
func ageBucket(age int64) string {
	if age < int64(ageBoundaries[0]) {
		return ageOverflowLabel
	}
	for i := len(ageBoundaries) - 1; i >= 0; i-- {
		if age >= int64(ageBoundaries[i]) {
			if label, ok := ageLabels[ageBoundaries[i]]; ok {
				return label
			}
			return ageOverflowLabel
		}
	}
	return ageOverflowLabel
}

// bucketLabel maps a $bucket _id (a lower boundary, or the overflow default)
// to its display label.
func bucketLabel(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case int32:
		return ageBucket(int64(v))
	case int64:
		return ageBucket(v)
	case float64:
		return ageBucket(int64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// zeroFillDays expands per-day counts into one row per calendar day, oldest
// first, inserting zeros for days with no records.
func zeroFillDays(counts map[string]int64, now time.Time, days int) []storage.NameValue {
	out := make([]storage.NameValue, 0, days)
	start := now.UTC().AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, storage.NameValue{Name: day, Value: counts[day]})
	}
	return out
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
