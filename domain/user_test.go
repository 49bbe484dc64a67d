package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testUserID = "3f2a0c83-6c2a-4c3a-a3b3-9f1a2b2c3d4e"

func TestCreateUserRecordsEvent(t *testing.T) {
	user, err := CreateUser(CreateUserParams{
		ID:           testUserID,
		Username:     "john_doe",
		Email:        "John.Doe@example.com",
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	require.Equal(t, RoleUser, user.Role())
	require.Equal(t, "john.doe@example.com", user.Email())

	events := user.PullDomainEvents()
	require.Len(t, events, 1)
	require.Equal(t, EventUserCreated, events[0].EventName())
	body := events[0].Body().(UserCreated)
	require.Equal(t, user.ToPrimitives(), body.UserPrimitives)
	require.Empty(t, user.PullDomainEvents())
}

func TestCreateUserValidation(t *testing.T) {
	valid := CreateUserParams{ID: testUserID, Username: "john", Email: "john@example.com", PasswordHash: "hash"}

	bad := valid
	bad.ID = "123"
	_, err := CreateUser(bad)
	require.True(t, IsDomainError(err, ErrCodeInvalid))

	bad = valid
	bad.Username = "a-very-long-username-indeed"
	_, err = CreateUser(bad)
	require.Error(t, err)

	bad = valid
	bad.PasswordHash = ""
	_, err = CreateUser(bad)
	require.Error(t, err)
}

func TestUserFromRecordRecordsNothing(t *testing.T) {
	user, err := UserFromRecord(UserRecord{
		UserPrimitives: UserPrimitives{ID: testUserID, Username: "john", Email: "john@example.com", Role: RoleAdmin},
		PasswordHash:   "hash",
	})
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, user.Role())
	require.Empty(t, user.PullDomainEvents())
}

func TestCreatePetUser(t *testing.T) {
	pu, err := CreatePetUser(PetUserPrimitives{ID: testUserID, Username: "john"})
	require.NoError(t, err)

	events := pu.PullDomainEvents()
	require.Len(t, events, 1)
	require.Equal(t, EventPetUserCreated, events[0].EventName())
	require.Equal(t, "pets.users.created", string(events[0].EventName()))

	_, err = CreatePetUser(PetUserPrimitives{ID: testUserID, Username: ""})
	require.Error(t, err)
}
