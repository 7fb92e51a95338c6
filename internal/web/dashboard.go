package web

// dashboardHTML is the single-page miner dashboard. It polls /api/status
// and renders without external assets so the CSP can stay strict.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ore-miner</title>
<style>
body { font-family: ui-monospace, monospace; background: #0d1117; color: #c9d1d9; margin: 2rem; }
h1 { font-size: 1.2rem; color: #e3b341; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { padding: 0.3rem 0.8rem; border-bottom: 1px solid #21262d; text-align: left; }
th { color: #8b949e; font-weight: normal; }
.stat { display: inline-block; margin-right: 2rem; }
.stat .v { font-size: 1.4rem; color: #58a6ff; }
.stat .l { color: #8b949e; font-size: 0.8rem; }
.flag { color: #e3b341; }
</style>
</head>
<body>
<h1>ore-miner</h1>
<div id="stats"></div>
<table>
<thead><tr><th>cycle</th><th>time</th><th>difficulty</th><th>nonce</th><th>bus</th><th>flags</th></tr></thead>
<tbody id="solutions"></tbody>
</table>
<script>
function esc(s) {
  return String(s).replace(/[&<>"]/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c]));
}
function stat(label, value) {
  return '<span class="stat"><span class="v">' + esc(value) + '</span><br><span class="l">' + esc(label) + '</span></span>';
}
async function refresh() {
  try {
    const r = await fetch('/api/status');
    const d = await r.json();
    document.getElementById('stats').innerHTML =
      stat('cycles', d.cycles) +
      stat('over target', d.cycles_over_target) +
      stat('best difficulty', d.best_difficulty) +
      stat('stake', d.stake_balance) +
      stat('workers', d.workers) +
      stat('uptime (s)', d.uptime_secs);
    const rows = (d.recent_solutions || []).map(s =>
      '<tr><td>' + esc(s.cycle) + '</td>' +
      '<td>' + esc(new Date(s.timestamp * 1000).toLocaleTimeString()) + '</td>' +
      '<td>' + esc(s.difficulty) + '</td>' +
      '<td>' + esc(s.nonce) + '</td>' +
      '<td>' + esc(s.bus.slice(0, 8)) + '…</td>' +
      '<td class="flag">' + (s.raise_fee ? 'fee ' : '') + (s.reset ? 'reset' : '') + '</td></tr>'
    ).join('');
    document.getElementById('solutions').innerHTML = rows;
  } catch (e) { /* retry on next tick */ }
}
refresh();
setInterval(refresh, 3000);
</script>
</body>
</html>
`
