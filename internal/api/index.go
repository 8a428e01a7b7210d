package api

// indexHTML is the minimal control page served at /. The real frontend
// lives with the enqueueing service; this page exists so the worker is
// inspectable in a browser.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>lightson</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 720px;
            margin: 50px auto;
            padding: 20px;
            background: #111;
            color: #eee;
        }
        img { max-width: 100%; border-radius: 6px; }
        a { color: #6cf; }
        code { background: #222; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>lightson</h1>
    <p>Camera preview:</p>
    <img src="/camera/stream" alt="camera preview">
    <h3>Endpoints</h3>
    <ul>
        <li><a href="/health">/health</a></li>
        <li><a href="/camera/snapshot">/camera/snapshot</a></li>
        <li><a href="/simon/round">/simon/round</a> &mdash; starts a Simon round</li>
        <li><code>POST /simon/check</code> with <code>{"sequence": ["red", "blue"]}</code></li>
        <li><code>POST /enqueue-color</code> with <code>{"color": "#ff8800"}</code></li>
    </ul>
</body>
</html>`
