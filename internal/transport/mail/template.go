package mail

import "html/template"

type templateData struct {
	Title      string
	Message    string
	Validity   string
	ButtonText string
	Link       string
	Year       int
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>{{.Title}}</title>
    <style>
      body { font-family: 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f4f7fa; color: #333; margin: 0; padding: 0; }
      .container { max-width: 600px; margin: 40px auto; background: #fff; border-radius: 10px; overflow: hidden; box-shadow: 0 5px 15px rgba(0,0,0,0.1); }
      .header { background-color: #007bff; padding: 20px; text-align: center; color: white; }
      .content { padding: 30px; text-align: center; }
      .content h2 { color: #007bff; margin-bottom: 20px; }
      .button { display: inline-block; margin-top: 20px; padding: 12px 25px; background-color: #007bff; color: #fff !important; text-decoration: none; border-radius: 6px; font-weight: bold; }
      .footer { text-align: center; font-size: 13px; color: #888; padding: 20px; background: #f4f4f4; }
      @media only screen and (max-width: 600px) { .content { padding: 20px; } }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>{{.Title}}</h1></div>
      <div class="content">
        <h2>Hello!</h2>
        <p>{{.Message}}{{if .Validity}} This link is valid for {{.Validity}}.{{end}}</p>
        <a href="{{.Link}}" class="button">{{.ButtonText}}</a>
      </div>
      <div class="footer">
        <p>If you didn't request this, you can safely ignore this email.</p>
        <p>&copy; {{.Year}} Secure Access. All rights reserved.</p>
      </div>
    </div>
  </body>
</html>
`))
