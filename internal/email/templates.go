package email

// Templates por defecto. Minimalistas a propósito: el branding vive en
// el frontend, estos correos solo tienen que llevar el link.

const verifyHTMLTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Verificá tu cuenta</h2>
  <p>Hola {{.Email}},</p>
  <p>Para activar tu cuenta hacé click en el siguiente enlace:</p>
  <p><a href="{{.Link}}">Verificar mi cuenta</a></p>
  <p>El enlace vence en {{.TTL}}. Si no creaste esta cuenta, ignorá este correo.</p>
</body>
</html>`

const verifyTextTmpl = `Hola {{.Email}},

Para activar tu cuenta abrí este enlace:

{{.Link}}

El enlace vence en {{.TTL}}. Si no creaste esta cuenta, ignorá este correo.
`

const resetHTMLTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Restablecer tu password</h2>
  <p>Hola {{.Email}},</p>
  <p>Recibimos un pedido para restablecer tu password:</p>
  <p><a href="{{.Link}}">Elegir un password nuevo</a></p>
  <p>El enlace vence en {{.TTL}}. Si no fuiste vos, ignorá este correo; tu password actual sigue vigente.</p>
</body>
</html>`

const resetTextTmpl = `Hola {{.Email}},

Recibimos un pedido para restablecer tu password. Abrí este enlace:

{{.Link}}

El enlace vence en {{.TTL}}. Si no fuiste vos, ignorá este correo; tu password actual sigue vigente.
`
