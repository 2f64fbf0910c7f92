package mongodb

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carelog/patient-records-api/storage"
)

// searchFilter builds the free-text patient filter: a case-insensitive
// substring match OR-ed across name, email, and phone. An empty term yields
// an open filter that matches everything.
func searchFilter(search string) bson.M {
	search = strings.TrimSpace(search)
	if search == "" {
		return bson.M{}
	}
	re := substringMatch(search)
	return bson.M{"$or": bson.A{
		bson.M{"firstName": re},
		bson.M{"lastName": re},
		bson.M{"email": re},
		bson.M{"phone": re},
	}}
}

// advancedFilter translates structured criteria into a filter document.
// Provided fields combine with implicit AND; absent fields add no constraint.
// The builder only constructs the predicate, it never executes queries.
func advancedFilter(c storage.AdvancedCriteria, now time.Time) (bson.M, error) {
	var clauses bson.A

	if name := strings.TrimSpace(c.Name); name != "" {
		re := substringMatch(name)
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"firstName": re},
			bson.M{"lastName": re},
		}})
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		clauses = append(clauses, bson.M{"email": substringMatch(email)})
	}
	if phone := strings.TrimSpace(c.Phone); phone != "" {
		clauses = append(clauses, bson.M{"phone": substringMatch(phone)})
	}
	if c.Status != "" {
		clauses = append(clauses, bson.M{"status": c.Status})
	}
	if c.Gender != "" {
		clauses = append(clauses, bson.M{"gender": c.Gender})
	}

	// The age range becomes a dateOfBirth window: someone is at least min
	// years old if born on or before now-min years, and at most max years old
	// if born after now-(max+1) years.
	dob := bson.M{}
	if c.AgeMin != nil {
		dob["$lte"] = now.AddDate(-*c.AgeMin, 0, 0)
	}
	if c.AgeMax != nil {
		dob["$gt"] = now.AddDate(-(*c.AgeMax + 1), 0, 0)
	}
	if len(dob) > 0 {
		clauses = append(clauses, bson.M{"dateOfBirth": dob})
	}

	if len(c.MedicalHistory) > 0 {
		clauses = append(clauses, bson.M{"medicalHistory": bson.M{"$in": c.MedicalHistory}})
	}

	created := bson.M{}
	if c.CreatedFrom != "" {
		from, _, err := parseDateBound(c.CreatedFrom)
		if err != nil {
			return nil, err
		}
		created["$gte"] = from
	}
	if c.CreatedTo != "" {
		to, dateOnly, err := parseDateBound(c.CreatedTo)
		if err != nil {
			return nil, err
		}
		if dateOnly {
			// A bare date bound is inclusive of the whole day.
			created["$lt"] = to.AddDate(0, 0, 1)
		} else {
			created["$lte"] = to
		}
	}
	if len(created) > 0 {
		clauses = append(clauses, bson.M{"createdAt": created})
	}

	if len(clauses) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": clauses}, nil
}

func substringMatch(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

// parseDateBound accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date and
// reports which form it saw.
func parseDateBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", storage.ErrInvalidDateFormat, s)
}
