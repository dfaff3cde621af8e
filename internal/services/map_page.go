package services

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"cultural-map/internal/models"
)

var mapPageTemplate = template.Must(template.New("map").Funcs(template.FuncMap{
	"toJSON": toJSON,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
    <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 0 1rem; }
        h1 { font-size: 1.5rem; }
        #map { width: 900px; height: 600px; max-width: 100%; }
        .controls { margin-bottom: .75rem; }
        .legend { background: #fff; padding: 6px 8px; line-height: 18px; border-radius: 4px; }
        .legend i { width: 18px; height: 18px; float: left; margin-right: 8px; opacity: 0.7; }
        .state-tooltip { background-color: white; border: 2px solid black; border-radius: 3px; box-shadow: 3px; }
    </style>
</head>
<body>
<h1>{{.Title}}</h1>
<form class="controls" method="get" action="">
    <label for="metric">Select Choice</label>
    <select id="metric" name="metric" onchange="this.form.submit()">
        {{range .Map.Metrics}}<option value="{{.}}" {{if eq . $.Map.Metric}}selected{{end}}>{{.}}</option>
        {{end}}
    </select>
    <noscript><button type="submit">Show</button></noscript>
</form>
<div id="map"></div>
<div class="legend" id="legend">
    <b>{{.Map.Choropleth.Legend.Name}}</b><br/>
    {{range .Map.Choropleth.Legend.Bins}}<i style="background: {{.Color}}"></i>{{printf "%.1f" .Lower}} &ndash; {{printf "%.1f" .Upper}}<br/>
    {{end}}<i style="background: {{.Map.Choropleth.Legend.NoDataColor}}"></i>no data
</div>
<script>
    var view = {{toJSON .Map.Viewport}};
    var choropleth = {{toJSON .Map.Choropleth}};
    var overlay = {{.OverlayJSON}};
    var outline = {{toJSON .Map.Overlay.Style}};
    var highlight = {{toJSON .Map.Overlay.Highlight}};
    var alias = {{.Map.Overlay.TooltipAlias}};

    var map = L.map('map', { maxBounds: view.maxBounds, maxBoundsViscosity: 1.0 }).setView(view.center, view.zoom);
    L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
        attribution: '&copy; OpenStreetMap contributors'
    }).addTo(map);

    L.geoJSON(overlay, {
        interactive: false,
        style: function (feature) {
            var cell = choropleth.cells[feature.properties.name];
            return {
                fillColor: cell ? cell.fillColor : choropleth.legend.noDataColor,
                fillOpacity: choropleth.fillOpacity,
                color: '#000000',
                opacity: choropleth.lineOpacity,
                weight: 1
            };
        }
    }).addTo(map);

    var states = L.geoJSON(overlay, {
        style: function () { return outline; },
        onEachFeature: function (feature, layer) {
            layer.bindTooltip(function () {
                var el = document.createElement('div');
                var label = document.createElement('b');
                label.textContent = alias + ' ';
                el.appendChild(label);
                el.appendChild(document.createTextNode(feature.properties.name));
                return el;
            }, { className: 'state-tooltip', sticky: true });
            layer.bindPopup(feature.properties.info);
            layer.on('mouseover', function () { layer.setStyle(highlight); });
            layer.on('mouseout', function () { states.resetStyle(layer); });
            layer.on('popupopen', function (e) {
                var box = e.popup.getElement().querySelector('.state-popup');
                if (box) {
                    box.onclick = function () { window.location.href = box.dataset.href; };
                }
            });
        }
    }).addTo(map);

    map.fitBounds(view.bounds);
</script>
</body>
</html>
`))

// RenderMapPage writes the hosting page for m
func RenderMapPage(w io.Writer, title string, m *models.Map) error {
	overlayJSON, err := json.Marshal(m.Overlay.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal overlay to JSON: %w", err)
	}

	data := struct {
		Title       string
		Map         *models.Map
		OverlayJSON template.JS
	}{
		Title:       title,
		Map:         m,
		OverlayJSON: template.JS(overlayJSON),
	}
	return mapPageTemplate.Execute(w, data)
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
