package maprender

// StyleElementID is the stable id of the injected <style> element. The
// client checks for it before injecting, so remounts are no-ops.
const StyleElementID = "mrtrack-map-styles"

const mapCSS = `
.mrt-marker { display:flex; align-items:center; justify-content:center;
  width:28px; height:28px; border-radius:50%; color:#fff; font:600 12px/1 sans-serif;
  border:2px solid #fff; box-shadow:0 1px 4px rgba(0,0,0,.4); }
.mrt-marker.visit { background:#2563eb; }
.mrt-marker.travel { background:#16a34a; width:18px; height:18px; }
.mrt-marker.current { background:#dc2626; width:34px; height:34px; }
.mrt-marker .mrt-badge { position:absolute; top:-7px; right:-7px; width:16px; height:16px;
  border-radius:50%; background:#111827; color:#fff; font-size:10px; line-height:16px; text-align:center; }
.mrt-pulse { position:absolute; inset:-8px; border-radius:50%;
  border:3px solid rgba(220,38,38,.55); animation:mrt-pulse 1.6s ease-out infinite; }
@keyframes mrt-pulse { 0% { transform:scale(.6); opacity:1; } 100% { transform:scale(1.4); opacity:0; } }
.leaflet-popup-content .mrt-popup { font:13px/1.45 sans-serif; min-width:190px; }
.mrt-popup h4 { margin:0 0 4px; font-size:14px; }
.mrt-popup .mrt-row { display:flex; justify-content:space-between; gap:12px; }
.mrt-popup .mrt-row span:first-child { color:#6b7280; }
.mrt-legend { background:rgba(255,255,255,.92); border-radius:6px; padding:8px 10px;
  font:12px/1.5 sans-serif; box-shadow:0 1px 4px rgba(0,0,0,.25); }
.mrt-legend .swatch { display:inline-block; width:10px; height:10px; border-radius:50%; margin-right:6px; }
.mrt-legend .swatch.visit { background:#2563eb; }
.mrt-legend .swatch.travel { background:#16a34a; }
.mrt-legend .swatch.current { background:#dc2626; }
`
