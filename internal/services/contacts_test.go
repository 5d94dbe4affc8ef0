package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func submitMessage(t *testing.T, f *fixture, email string) *entities.ContactMessage {
	t.Helper()
	msg, err := f.contacts.Submit(context.Background(), ContactInput{
		LastName: "Martin",
		Email:    email,
		Subject:  "Horaires",
		Message:  "Êtes-vous ouverts le dimanche ?",
	})
	require.NoError(t, err)
	return msg
}

func TestContactService_SubmitNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin@example.com")
	f.user(t, "reader@example.com")

	msg := submitMessage(t, f, "reader@example.com")

	assert.Equal(t, entities.ContactTypeUserToAdmin, msg.Type)
	assert.Equal(t, entities.ContactCategoryQuestion, msg.Category)
	assert.Equal(t, entities.ContactStatusNew, msg.Status)

	list := f.unread(t, admin.ID)
	require.Len(t, list, 1)
	assert.Equal(t, entities.NotificationTypeContactMessage, list[0].Type)

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@example.com", sent[0].To)
}

func TestContactService_SubmitValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.contacts.Submit(context.Background(), ContactInput{
		LastName: "Martin",
		Email:    "not-an-email",
		Subject:  "x",
		Message:  "y",
	})
	assert.Error(t, err)

	_, err = f.contacts.Submit(context.Background(), ContactInput{
		LastName: "Martin",
		Email:    "a@example.com",
		Subject:  "x",
		Message:  "y",
		Category: "gossip",
	})
	assert.Error(t, err)
}

func TestContactService_FirstReplyFiresOnce(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "admin@example.com")
	reader := f.user(t, "reader@example.com")
	msg := submitMessage(t, f, "reader@example.com")
	f.mail.Reset()

	reply := "Non, fermé le dimanche."
	updated, warn, err := f.contacts.Update(context.Background(), msg.ID, ContactPatch{Reply: &reply})
	require.NoError(t, err)
	assert.NoError(t, warn)
	require.NotNil(t, updated.RepliedAt)
	assert.True(t, updated.IsRead)

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "reader@example.com", sent[0].To)

	list := f.unread(t, reader.ID)
	require.Len(t, list, 1)
	assert.Equal(t, entities.NotificationTypeContactReply, list[0].Type)

	firstRepliedAt := *updated.RepliedAt
	edited := "Non, fermé le dimanche et les jours fériés."
	updated, warn, err = f.contacts.Update(context.Background(), msg.ID, ContactPatch{Reply: &edited})
	require.NoError(t, err)
	assert.NoError(t, warn)
	assert.Equal(t, edited, updated.Reply)
	assert.True(t, firstRepliedAt.Equal(*updated.RepliedAt))

	assert.Len(t, f.mail.Sent(), 1)
	assert.Len(t, f.unread(t, reader.ID), 1)
}

func TestContactService_StatusChangeWithoutReply(t *testing.T) {
	f := newFixture(t)
	msg := submitMessage(t, f, "someone@example.com")
	f.mail.Reset()

	status := entities.ContactStatusInProgress
	updated, warn, err := f.contacts.Update(context.Background(), msg.ID, ContactPatch{Status: &status})
	require.NoError(t, err)
	assert.NoError(t, warn)
	assert.Equal(t, entities.ContactStatusInProgress, updated.Status)
	assert.Nil(t, updated.RepliedAt)
	assert.Empty(t, f.mail.Sent())
}

func TestContactService_ReplyMailFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	msg := submitMessage(t, f, "guest@example.com")
	f.mail.Err = errors.New("smtp down")

	reply := "Merci pour votre message."
	updated, warn, err := f.contacts.Update(context.Background(), msg.ID, ContactPatch{Reply: &reply})
	require.NoError(t, err)
	assert.Error(t, warn)
	require.NotNil(t, updated.RepliedAt)

	stored, err := f.contactRepo.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, reply, stored.Reply)
	assert.NotNil(t, stored.RepliedAt)
}

func TestContactService_UpdateNotFound(t *testing.T) {
	f := newFixture(t)
	reply := "x"
	_, _, err := f.contacts.Update(context.Background(), 999, ContactPatch{Reply: &reply})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestContactService_MessageUser(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin@example.com")
	reader := f.user(t, "reader@example.com")

	msg, warn, err := f.contacts.MessageUser(context.Background(), admin, DirectMessageInput{
		RecipientID: reader.ID,
		Subject:     "Retour attendu",
		Message:     "Merci de rapporter votre livre.",
	})
	require.NoError(t, err)
	assert.NoError(t, warn)
	assert.Equal(t, entities.ContactTypeAdminToUser, msg.Type)
	assert.Equal(t, entities.ContactCategoryInformation, msg.Category)
	require.NotNil(t, msg.RecipientID)
	assert.Equal(t, reader.ID, *msg.RecipientID)

	require.Len(t, f.unread(t, reader.ID), 1)
	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "reader@example.com", sent[0].To)

	count, err := f.contacts.CountUnreadForUser(reader)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	shown, err := f.contacts.ShowForUser(reader, msg.ID)
	require.NoError(t, err)
	assert.True(t, shown.IsRead)

	count, err = f.contacts.CountUnreadForUser(reader)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestContactService_MessageUserUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin@example.com")

	_, _, err := f.contacts.MessageUser(context.Background(), admin, DirectMessageInput{
		RecipientID: 4242,
		Subject:     "Hello",
		Message:     "World",
	})
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestContactService_MessageUserMailFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin@example.com")
	reader := f.user(t, "reader@example.com")
	f.mail.Err = errors.New("smtp down")

	msg, warn, err := f.contacts.MessageUser(context.Background(), admin, DirectMessageInput{
		RecipientID: reader.ID,
		Subject:     "Hello",
		Message:     "World",
	})
	require.NoError(t, err)
	assert.Error(t, warn)
	assert.NotZero(t, msg.ID)
	assert.Len(t, f.unread(t, reader.ID), 1)
}

func TestContactService_OwnMessages(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "reader@example.com")
	other := f.user(t, "other@example.com")
	msg := submitMessage(t, f, "Reader@Example.com")

	list, err := f.contacts.ListForUser(reader)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.contacts.ShowForUser(other, msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.contacts.EditOwn(other, msg.ID, OwnMessageEdit{Subject: "x", Message: "y"})
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := f.contacts.EditOwn(reader, msg.ID, OwnMessageEdit{Subject: "Horaires d'été", Message: "Et en août ?"})
	require.NoError(t, err)
	assert.Equal(t, "Horaires d'été", edited.Subject)

	reply := "Ouvert tout l'été."
	_, _, err = f.contacts.Update(context.Background(), msg.ID, ContactPatch{Reply: &reply})
	require.NoError(t, err)

	_, err = f.contacts.EditOwn(reader, msg.ID, OwnMessageEdit{Subject: "x", Message: "y"})
	assert.ErrorIs(t, err, ErrAlreadyReplied)

	assert.ErrorIs(t, f.contacts.DeleteOwn(other, msg.ID), ErrForbidden)
	require.NoError(t, f.contacts.DeleteOwn(reader, msg.ID))

	_, err = f.contacts.ShowForUser(reader, msg.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestContactService_ShowForAdminMarksRead(t *testing.T) {
	f := newFixture(t)
	msg := submitMessage(t, f, "guest@example.com")

	count, err := f.contacts.CountUnreadFromUsers()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	shown, err := f.contacts.ShowForAdmin(msg.ID)
	require.NoError(t, err)
	assert.True(t, shown.IsRead)

	count, err = f.contacts.CountUnreadFromUsers()
	require.NoError(t, err)
	assert.Zero(t, count)
}
