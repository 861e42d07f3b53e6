package http

import "html/template"

// interstitialData данные для рендеринга промежуточных страниц
type interstitialData struct {
	Title          string
	Description    string
	Platform       string
	AppSchemeURL   string
	IntentURL      string
	FallbackURL    string
	StoreURL       string
	DestinationURL string
	TrackingID     string
	StoreLabel     string
}

// nativeAttemptTemplate интерстициал попытки открытия приложения.
// Клиентская сторона обязана не зависнуть: попытка схемы откатывается на
// fallback через 2.5s, жесткий fallback срабатывает через 5s независимо
// от видимости страницы.
var nativeAttemptTemplate = template.Must(template.New("native_attempt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 20px; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; text-align: center; min-height: 100vh; display: flex; flex-direction: column; justify-content: center; }
        .container { max-width: 400px; margin: 0 auto; background: rgba(255,255,255,0.1); padding: 30px; border-radius: 20px; }
        .spinner { width: 40px; height: 40px; margin: 0 auto 20px; border: 4px solid rgba(255,255,255,0.3); border-top-color: white; border-radius: 50%; animation: spin 1s linear infinite; }
        @keyframes spin { to { transform: rotate(360deg); } }
        .title { font-size: 24px; font-weight: 600; margin-bottom: 10px; }
        .fallback { margin-top: 20px; opacity: 0.8; }
        .fallback a { color: white; text-decoration: underline; }
    </style>
</head>
<body>
    <div class="container">
        <div class="spinner"></div>
        <div class="title">{{.Title}}</div>
        <div class="fallback">
            <a href="{{.FallbackURL}}">Continue in browser</a>
        </div>
    </div>
    <script>
        var appOpened = false;
        var fallbackUrl = '{{.FallbackURL}}';
        var appUrl = '{{if .IntentURL}}{{.IntentURL}}{{else}}{{.AppSchemeURL}}{{end}}';

        window.addEventListener('blur', function() { appOpened = true; });
        document.addEventListener('visibilitychange', function() {
            if (document.hidden) { appOpened = true; }
        });

        setTimeout(function() {
            if (appUrl) { window.location.href = appUrl; }
        }, 100);

        // Scheme attempt fallback
        setTimeout(function() {
            if (!appOpened) { window.location.href = fallbackUrl; }
        }, 2500);

        // Hard safety fallback regardless of page visibility state
        setTimeout(function() {
            window.location.href = fallbackUrl;
        }, 5000);
    </script>
</body>
</html>
`))

// deferredTemplate интерстициал установки с открытым отложенным контекстом.
// Tracking id дублируется в localStorage и в URL магазина.
var deferredTemplate = template.Must(template.New("deferred").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 20px; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; text-align: center; min-height: 100vh; display: flex; flex-direction: column; justify-content: center; }
        .container { max-width: 400px; margin: 0 auto; background: rgba(255,255,255,0.1); padding: 30px; border-radius: 20px; }
        .logo { width: 80px; height: 80px; background: white; border-radius: 20px; margin: 0 auto 20px; display: flex; align-items: center; justify-content: center; font-size: 30px; }
        .title { font-size: 24px; font-weight: 600; margin-bottom: 10px; }
        .description { font-size: 16px; opacity: 0.9; margin-bottom: 30px; }
        .install-btn { background: white; color: #333; padding: 15px 30px; border: none; border-radius: 50px; font-size: 16px; font-weight: 600; text-decoration: none; display: inline-block; }
        .continue-web { margin-top: 20px; opacity: 0.8; }
        .continue-web a { color: white; text-decoration: underline; }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">&#128241;</div>
        <div class="title">{{.Title}}</div>
        <div class="description">{{.Description}}</div>
        <a href="{{.StoreURL}}" class="install-btn" id="install-link">{{.StoreLabel}}</a>
        <div class="continue-web">
            <a href="{{.DestinationURL}}" id="continue-link">Continue on the web</a>
        </div>
    </div>
    <script>
        var trackingId = '{{.TrackingID}}';
        try { localStorage.setItem('synctra_tracking_id', trackingId); } catch (e) {}

        document.getElementById('continue-link').addEventListener('click', function() {
            fetch('/track-web-continue', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({tracking_id: trackingId})
            });
        });
    </script>
</body>
</html>
`))
