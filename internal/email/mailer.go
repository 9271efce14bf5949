package email

import (
	"bytes"
	"errors"
	"fmt"
	htemplate "html/template"
	"net/url"
	ttemplate "text/template"
	"time"
)

var ErrTemplateRender = errors.New("email: template render failed")

// Mailer compone y envía los correos del flujo de cuentas.
// Los links se construyen sobre BaseURL, que apunta al frontend o al
// propio servicio según el despliegue.
type Mailer struct {
	Sender    Sender
	BaseURL   string
	VerifyTTL time.Duration
	ResetTTL  time.Duration

	verifyHTML *htemplate.Template
	verifyText *ttemplate.Template
	resetHTML  *htemplate.Template
	resetText  *ttemplate.Template
}

type linkVars struct {
	Email string
	Link  string
	TTL   string
}

// NewMailer compila los templates por defecto.
func NewMailer(sender Sender, baseURL string, verifyTTL, resetTTL time.Duration) (*Mailer, error) {
	m := &Mailer{
		Sender:    sender,
		BaseURL:   baseURL,
		VerifyTTL: verifyTTL,
		ResetTTL:  resetTTL,
	}
	var err error
	if m.verifyHTML, err = htemplate.New("verify_html").Parse(verifyHTMLTmpl); err != nil {
		return nil, err
	}
	if m.verifyText, err = ttemplate.New("verify_text").Parse(verifyTextTmpl); err != nil {
		return nil, err
	}
	if m.resetHTML, err = htemplate.New("reset_html").Parse(resetHTMLTmpl); err != nil {
		return nil, err
	}
	if m.resetText, err = ttemplate.New("reset_text").Parse(resetTextTmpl); err != nil {
		return nil, err
	}
	return m, nil
}

// VerifyLink arma la URL de verificación con el token en query.
func (m *Mailer) VerifyLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", m.BaseURL, url.QueryEscape(token))
}

// ResetLink arma la URL de reset con el token en query.
func (m *Mailer) ResetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", m.BaseURL, url.QueryEscape(token))
}

// SendVerification envía el correo de verificación de cuenta.
func (m *Mailer) SendVerification(to, token string) error {
	vars := linkVars{
		Email: to,
		Link:  m.VerifyLink(token),
		TTL:   humanTTL(m.VerifyTTL),
	}
	html, text, err := render(m.verifyHTML, m.verifyText, vars)
	if err != nil {
		return err
	}
	return m.Sender.Send(to, "Verificá tu cuenta", html, text)
}

// SendPasswordReset envía el correo con el link de reset.
func (m *Mailer) SendPasswordReset(to, token string) error {
	vars := linkVars{
		Email: to,
		Link:  m.ResetLink(token),
		TTL:   humanTTL(m.ResetTTL),
	}
	html, text, err := render(m.resetHTML, m.resetText, vars)
	if err != nil {
		return err
	}
	return m.Sender.Send(to, "Restablecer tu password", html, text)
}

func render(h *htemplate.Template, t *ttemplate.Template, vars linkVars) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, vars); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	if err := t.Execute(&tb, vars); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return hb.String(), tb.String(), nil
}

func humanTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d.Hours())
		if h == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", h)
	}
	return fmt.Sprintf("%d minutos", int(d.Minutes()))
}
