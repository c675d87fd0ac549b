package whatsapp

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "hostel-pms/internal/model"
)

type fakeAPI struct {
    sessionErr   error
    templateErr  error
    sessionCalls int
    templateCall *templateCall
}

type templateCall struct {
    name     string
    language string
    params   []string
}

func (f *fakeAPI) SendSessionMessage(ctx context.Context, cfg model.WhatsAppSettings, to, body string) (*SendResult, error) {
    f.sessionCalls++
    if f.sessionErr != nil {
        return nil, f.sessionErr
    }
    return &SendResult{MessageID: "wamid.session"}, nil
}

func (f *fakeAPI) SendTemplateMessage(ctx context.Context, cfg model.WhatsAppSettings, to, templateName, languageCode string, params []string) (*SendResult, error) {
    f.templateCall = &templateCall{name: templateName, language: languageCode, params: params}
    if f.templateErr != nil {
        return nil, f.templateErr
    }
    return &SendResult{MessageID: "wamid.template"}, nil
}

type fakeStore struct {
    incoming bool
    windowErr error
    created  []*model.MessageRecord
}

func (f *fakeStore) HasIncomingSince(ctx context.Context, phone string, since time.Time) (bool, error) {
    return f.incoming, f.windowErr
}

func (f *fakeStore) Create(ctx context.Context, m *model.MessageRecord) error {
    f.created = append(f.created, m)
    return nil
}

func testSettings() model.WhatsAppSettings {
    return model.WhatsAppSettings{Provider: "meta", APIKey: "k", PhoneNumberID: "123"}
}

func TestSendUsesTemplateWhenNoIncomingMessages(t *testing.T) {
    api := &fakeAPI{}
    store := &fakeStore{incoming: false}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+573001234567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
        Params:     []string{"Ana"},
    })
    require.NoError(t, err)

    assert.Equal(t, 0, api.sessionCalls, "session tier must not be tried with a closed window")
    require.NotNil(t, api.templateCall)
    assert.Equal(t, "reservation_checkin_invitation", api.templateCall.name)
    assert.Equal(t, "es", api.templateCall.language)
}

func TestSendSessionWhenWindowOpen(t *testing.T) {
    api := &fakeAPI{}
    store := &fakeStore{incoming: true}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+573001234567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
    })
    require.NoError(t, err)

    assert.Equal(t, 1, api.sessionCalls)
    assert.Nil(t, api.templateCall)
    require.Len(t, store.created, 1)
    assert.Equal(t, model.MessageDirectionOutgoing, store.created[0].Direction)
    assert.Equal(t, "wamid.session", store.created[0].ProviderMessageID)
}

func TestSendFallsBackOnWindowExpiredError(t *testing.T) {
    api := &fakeAPI{sessionErr: &APIError{StatusCode: 400, Code: 131047, Message: "re-engagement message required"}}
    store := &fakeStore{incoming: true}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+573001234567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
    })
    require.NoError(t, err)

    assert.Equal(t, 1, api.sessionCalls)
    require.NotNil(t, api.templateCall)
    assert.Equal(t, "reservation_checkin_invitation", api.templateCall.name)
}

func TestSendReturnsSessionErrorWithoutTemplate(t *testing.T) {
    sessionErr := &APIError{StatusCode: 500, Code: 1, Message: "internal"}
    api := &fakeAPI{sessionErr: sessionErr}
    store := &fakeStore{incoming: true}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:   "+573001234567",
        Body: "hola",
    })
    require.Error(t, err)
    var apiErr *APIError
    require.True(t, errors.As(err, &apiErr))
    assert.Equal(t, 1, apiErr.Code)
    assert.Nil(t, api.templateCall)
}

func TestSendTemplateDirectlyForFreshGuest(t *testing.T) {
    // Reservation 42, guest +573001234567, empty message store: the
    // engine must go straight to the template tier.
    api := &fakeAPI{}
    store := &fakeStore{}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+57 300 123-4567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
        Params:     []string{"Ana", "https://app.example.com/check-in/42", "https://pay.example.com/x"},
    })
    require.NoError(t, err)

    assert.Equal(t, 0, api.sessionCalls)
    require.NotNil(t, api.templateCall)
    assert.Equal(t, []string{"Ana", "https://app.example.com/check-in/42", "https://pay.example.com/x"}, api.templateCall.params)
    require.Len(t, store.created, 1)
    assert.Equal(t, "+573001234567", store.created[0].Phone)
}

func TestSendWindowCheckFailureUsesTemplateTier(t *testing.T) {
    api := &fakeAPI{}
    store := &fakeStore{windowErr: errors.New("db down")}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+573001234567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
    })
    require.NoError(t, err)
    assert.Equal(t, 0, api.sessionCalls)
    require.NotNil(t, api.templateCall)
}

func TestSendBothTiersFailWrapsSessionError(t *testing.T) {
    api := &fakeAPI{
        sessionErr:  &APIError{StatusCode: 400, Code: 131026, Message: "message undeliverable"},
        templateErr: errors.New("template rejected"),
    }
    store := &fakeStore{incoming: true}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+573001234567",
        Body:       "hola",
        TemplateID: TemplateCheckInInvitation,
    })
    require.Error(t, err)
    assert.Contains(t, err.Error(), "template rejected")
    assert.Contains(t, err.Error(), "131026")
    assert.Empty(t, store.created)
}

func TestSendEnglishTemplateNameForUSPhone(t *testing.T) {
    api := &fakeAPI{}
    store := &fakeStore{}
    e := NewEngine(api, store, "es")

    err := e.Send(context.Background(), testSettings(), Delivery{
        To:         "+14155550123",
        Body:       "hello",
        TemplateID: TemplateCheckInInvitation,
    })
    require.NoError(t, err)
    require.NotNil(t, api.templateCall)
    assert.Equal(t, "reservation_checkin_invitation_", api.templateCall.name)
    assert.Equal(t, "en", api.templateCall.language)
}
