package crowd

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesToCrowd(t *testing.T) {
	attrs := Attributes{
		"zeta":  "last",
		"alpha": 42,
		"beta":  []string{"a", "b"},
	}

	encoded, err := attrs.toCrowd()
	require.NoError(t, err)
	require.Len(t, encoded, 3)

	// Keys come out sorted so request bodies are stable.
	assert.Equal(t, "alpha", encoded[0].Name)
	assert.Equal(t, "beta", encoded[1].Name)
	assert.Equal(t, "zeta", encoded[2].Name)

	assert.Equal(t, []string{"42"}, encoded[0].Values)
	assert.Equal(t, []string{`["a","b"]`}, encoded[1].Values)
	assert.Equal(t, []string{`"last"`}, encoded[2].Values)
}

func TestAttributesRoundTrip(t *testing.T) {
	attrs := Attributes{
		"plan":   "enterprise",
		"seats":  float64(25),
		"labels": []any{"vip", "beta"},
	}

	encoded, err := attrs.toCrowd()
	require.NoError(t, err)

	decoded, err := attributesFromCrowd(encoded)
	require.NoError(t, err)
	assert.Equal(t, attrs, decoded)
}

func TestAttributesValueTooLarge(t *testing.T) {
	big := make([]byte, maxAttributeValueLen+1)
	for i := range big {
		big[i] = 'x'
	}

	attrs := Attributes{
		"ok":       "small",
		"oversize": string(big),
	}

	_, err := attrs.toCrowd()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueTooLarge)
	// The offending attribute is named so the caller can report it.
	assert.Contains(t, err.Error(), `"oversize"`)
}

func TestAttributesLimitCountsEncodedLength(t *testing.T) {
	// 253 raw characters fit exactly once the JSON quotes are added; one more
	// character pushes the encoded form over the limit.
	fits := make([]byte, maxAttributeValueLen-2)
	for i := range fits {
		fits[i] = 'y'
	}

	_, err := Attributes{"edge": string(fits)}.toCrowd()
	assert.NoError(t, err)

	_, err = Attributes{"edge": string(fits) + "y"}.toCrowd()
	assert.ErrorIs(t, err, ErrValueTooLarge)
}

func TestUserWireFormat(t *testing.T) {
	user := User{
		Username:    "sclaus",
		FirstName:   "Santa",
		LastName:    "Claus",
		DisplayName: "Santa Claus",
		Email:       "sclaus@example.com",
		Active:      true,
		Password:    "ho-ho-ho",
	}

	raw, err := json.Marshal(user.toCrowd())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "sclaus", fields["name"])
	assert.Equal(t, "Santa", fields["first-name"])
	assert.Equal(t, "Claus", fields["last-name"])
	assert.Equal(t, "Santa Claus", fields["display-name"])
	assert.Equal(t, map[string]any{"value": "ho-ho-ho"}, fields["password"])
}

func TestUserWireFormatOmitsEmptyPassword(t *testing.T) {
	raw, err := json.Marshal(User{Username: "sclaus"}.toCrowd())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestUserFromCrowdNeverCarriesPassword(t *testing.T) {
	user := userFromCrowd(crowdUser{
		Name:     "sclaus",
		Password: &crowdPassword{Value: "leaked?"},
	})
	assert.Empty(t, user.Password)
}

func TestSessionFromCrowdMillisecondEpochs(t *testing.T) {
	session := sessionFromCrowd(crowdSession{
		Token:       "abc123",
		CreatedDate: 1700000000000,
		ExpiryDate:  1700000600000,
	})

	assert.Equal(t, "abc123", session.Token)
	assert.Equal(t, time.UnixMilli(1700000000000), session.CreatedAt)
	assert.Equal(t, 10*time.Minute, session.ExpiresAt.Sub(session.CreatedAt))
}

func TestValidationFactorsWireFormat(t *testing.T) {
	factors := ValidationFactors{
		"remote_address": "10.0.0.1",
		"forwarded_for":  "192.168.1.1",
	}

	raw, err := json.Marshal(factors.toCrowd())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"validationFactors": [
			{"name": "forwarded_for", "value": "192.168.1.1"},
			{"name": "remote_address", "value": "10.0.0.1"}
		]
	}`, string(raw))
}

func TestGroupRefLegacyUnwrap(t *testing.T) {
	var modern groupRef
	require.NoError(t, json.Unmarshal([]byte(`{"name": "crowd-users"}`), &modern))
	assert.Equal(t, "crowd-users", modern.name())

	var legacy groupRef
	require.NoError(t, json.Unmarshal(
		[]byte(`{"GroupEntity": {"name": "jira-developers"}}`), &legacy))
	assert.Equal(t, "jira-developers", legacy.name())
}

func TestGroupWireFormatSetsType(t *testing.T) {
	raw, err := json.Marshal(Group{Name: "admins", Active: true}.toCrowd())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"GROUP"`)
}
