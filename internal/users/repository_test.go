package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yangjihun/FM-COMMIT/internal/models"
)

func TestBlockUpdate_Shape(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	u := blockUpdate("a@gachon.ac.kr", "spam", now)

	require.Equal(t, bson.M{"reason": "spam", "updatedAt": now}, u["$set"])
	require.Equal(t, bson.M{"email": "a@gachon.ac.kr", "createdAt": now}, u["$setOnInsert"])

	// stored field names must match the model's bson tags
	raw, err := bson.Marshal(models.BlockedUser{Email: "a@gachon.ac.kr", Reason: "spam", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	for _, op := range []string{"$set", "$setOnInsert"} {
		for k := range u[op].(bson.M) {
			require.Contains(t, doc, k, op)
		}
	}
}

func TestRoleUpdate_Shape(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	u := roleUpdate(models.RoleAdmin, now)
	set := u["$set"].(bson.M)
	require.Equal(t, models.RoleAdmin, set["level"])
	require.Equal(t, now, set["updatedAt"])

	raw, err := bson.Marshal(models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	require.Equal(t, "admin", doc["level"])
	require.NotContains(t, doc, "isBlocked")
}
