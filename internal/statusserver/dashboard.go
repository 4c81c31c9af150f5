package statusserver

import "github.com/gofiber/fiber/v2"

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(dashboardHTML)
}

func (s *Server) handleDashboardJS(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript; charset=utf-8")
	return c.SendString(dashboardJS)
}

func (s *Server) handleDashboardCSS(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	return c.SendString(dashboardCSS)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>doubri status</title>
    <link rel="stylesheet" href="/dashboard.css">
</head>
<body>
    <div class="panel">
        <h1 id="title">doubri</h1>
        <div id="status" class="status">connecting&hellip;</div>
        <div class="bar-track"><div id="bar-fill" class="bar-fill"></div></div>
        <dl class="stats">
            <dt>Band</dt><dd id="band">-</dd>
            <dt>Items</dt><dd id="items">-</dd>
            <dt>Active</dt><dd id="active">-</dd>
            <dt>Detected</dt><dd id="detected">-</dd>
            <dt>Detection ratio</dt><dd id="ratio">-</dd>
            <dt>Elapsed</dt><dd id="elapsed">-</dd>
        </dl>
    </div>
    <script src="/dashboard.js"></script>
</body>
</html>`

const dashboardCSS = `
body { background:#0d0d0d; color:#e0e0e0; font-family: monospace; margin:0; padding:2rem; }
.panel { max-width:560px; margin:0 auto; border:1px solid #00ffff; border-radius:8px; padding:1.5rem 2rem; }
h1 { color:#ff00ff; margin-top:0; }
.status { margin-bottom:1rem; font-weight:bold; }
.status.running { color:#00ff00; }
.status.stopped { color:#ff0055; }
.status.completed { color:#ff00ff; }
.bar-track { background:#1a1a2e; border-radius:4px; height:14px; overflow:hidden; margin-bottom:1.5rem; }
.bar-fill { background:#00ffff; height:100%; width:0%; transition:width .2s ease; }
dl.stats { display:grid; grid-template-columns: 10rem 1fr; row-gap:.4rem; margin:0; }
dt { color:#666; }
dd { margin:0; font-weight:bold; }
`

const dashboardJS = `
(function() {
  const statusEl = document.getElementById('status');
  const barEl = document.getElementById('bar-fill');
  const fields = { band: 'band', items: 'numItems', active: 'numActiveAfter', detected: 'numDetected' };

  function render(snap) {
    document.getElementById('title').textContent = 'doubri ' + snap.kind + ' — ' + snap.basename;
    document.getElementById('band').textContent = snap.band + ' / ' + snap.totalBands;
    document.getElementById('items').textContent = snap.numItems;
    document.getElementById('active').textContent = snap.numActiveAfter;
    document.getElementById('detected').textContent = snap.numDetected;
    document.getElementById('ratio').textContent = (snap.detectionRatio * 100).toFixed(2) + '%';
    document.getElementById('elapsed').textContent = snap.elapsedSeconds.toFixed(1) + 's';

    const pct = snap.totalBands > 0 ? (100 * snap.band / snap.totalBands) : 0;
    barEl.style.width = pct + '%';

    statusEl.classList.remove('running', 'stopped', 'completed');
    if (!snap.running) {
      statusEl.classList.add(snap.error ? 'stopped' : 'completed');
      statusEl.textContent = snap.error ? ('failed: ' + snap.error) : 'completed';
    } else {
      statusEl.classList.add('running');
      statusEl.textContent = 'running';
    }
  }

  function connect() {
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = (ev) => render(JSON.parse(ev.data));
    ws.onclose = () => setTimeout(connect, 2000);
  }
  connect();
})();
`
